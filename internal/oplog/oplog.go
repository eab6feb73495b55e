// Package oplog implements the per-worker append-only effect log (C3):
// append/read/truncate_suffix/mark_deleted, plus the replay lookup that
// is the central durability invariant of the whole system.
package oplog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/metrics"
)

func streamKey(id domain.WorkerID) string {
	return fmt.Sprintf("oplog:%s", id.String())
}

func statusKey(id domain.WorkerID) string {
	return fmt.Sprintf("status:%s", id.String())
}

// Oplog is the durable effect log for one or many workers, backed by a
// kvstore.Store ordered-append stream per worker.
type Oplog struct {
	kv kvstore.Store
}

func New(kv kvstore.Store) *Oplog {
	return &Oplog{kv: kv}
}

// Append adds an entry of kind with payload to worker's log, assigning it
// the next index, and returns the assigned index. The entry's Timestamp
// is always set to the current UTC time.
func (o *Oplog) Append(ctx context.Context, id domain.WorkerID, kind domain.OplogEntryKind, payload any) (uint64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("oplog: marshal payload: %w", err)
	}
	entry := domain.OplogEntry{Timestamp: time.Now().UTC(), Kind: kind, Payload: raw}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("oplog: marshal entry: %w", err)
	}
	idx, err := o.kv.OrderedAppend(ctx, streamKey(id), encoded)
	if err != nil {
		return 0, err
	}
	metrics.Global().RecordOplogAppend()
	return idx, nil
}

// Read returns entries [fromIdx, toIdx) for worker id, in index order.
// toIdx == 0 means through the end of the log.
func (o *Oplog) Read(ctx context.Context, id domain.WorkerID, fromIdx, toIdx uint64) ([]domain.OplogEntry, error) {
	raw, err := o.kv.Range(ctx, streamKey(id), fromIdx, toIdx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OplogEntry, 0, len(raw))
	for _, e := range raw {
		var entry domain.OplogEntry
		if err := json.Unmarshal(e.Value, &entry); err != nil {
			return nil, fmt.Errorf("oplog: decode entry %d: %w", e.Index, err)
		}
		entry.Index = e.Index
		out = append(out, entry)
	}
	metrics.Global().RecordOplogRead()
	return out, nil
}

// Len returns the number of entries appended for worker id so far — the
// same quantity as WorkerStatusRecord.LastOplogIndex + 1 once caught up.
func (o *Oplog) Len(ctx context.Context, id domain.WorkerID) (uint64, error) {
	return o.kv.Len(ctx, streamKey(id))
}

// TruncateSuffix logically removes entries [fromIdx, end) from replay by
// recording them as a deleted region in the worker's status record. The
// underlying stream is never mutated — mark_deleted and truncate_suffix
// share the same representation, since both describe "do not replay
// this range", just with different origins (explicit deletion vs.
// superseding a suffix with a new one).
func (o *Oplog) TruncateSuffix(ctx context.Context, id domain.WorkerID, fromIdx uint64) error {
	length, err := o.Len(ctx, id)
	if err != nil {
		return err
	}
	return o.MarkDeleted(ctx, id, fromIdx, length)
}

// MarkDeleted records [fromIdx, toIdx) as a deleted region for id.
func (o *Oplog) MarkDeleted(ctx context.Context, id domain.WorkerID, fromIdx, toIdx uint64) error {
	for attempt := 0; attempt < 8; attempt++ {
		raw, ver, err := o.kv.Get(ctx, statusKey(id))
		if err != nil && err != kvstore.ErrNotFound {
			return err
		}
		var rec domain.WorkerStatusRecord
		if err == nil {
			if jerr := json.Unmarshal(raw, &rec); jerr != nil {
				return jerr
			}
		}
		rec.DeletedRegions = append(rec.DeletedRegions, domain.DeletedRegion{From: fromIdx, To: toIdx})
		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := o.kv.CAS(ctx, statusKey(id), ver, encoded); err == kvstore.ErrCASMismatch {
			continue
		} else if err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("oplog: mark deleted: too many CAS retries")
}

// ErrWorkerExists is returned by CreateStatus when id already has a
// status record.
var ErrWorkerExists = errors.New("oplog: worker already exists")

// ErrWorkerNotFound is returned by GetStatus/SetStatus/DeleteWorker when
// id has no status record.
var ErrWorkerNotFound = errors.New("oplog: worker not found")

// CreateStatus creates the initial status record for a newly created
// worker. CreatedAt is fixed here and never recomputed by later reads
// (see DESIGN.md Open Question 1).
func (o *Oplog) CreateStatus(ctx context.Context, rec domain.WorkerStatusRecord) error {
	_, ver, err := o.kv.Get(ctx, statusKey(rec.WorkerID))
	if err == nil {
		return ErrWorkerExists
	}
	if err != kvstore.ErrNotFound {
		return err
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return o.kv.CAS(ctx, statusKey(rec.WorkerID), ver, encoded)
}

// GetStatus returns the current status record for id.
func (o *Oplog) GetStatus(ctx context.Context, id domain.WorkerID) (domain.WorkerStatusRecord, error) {
	raw, _, err := o.kv.Get(ctx, statusKey(id))
	if err == kvstore.ErrNotFound {
		return domain.WorkerStatusRecord{}, ErrWorkerNotFound
	}
	if err != nil {
		return domain.WorkerStatusRecord{}, err
	}
	var rec domain.WorkerStatusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.WorkerStatusRecord{}, err
	}
	if rec.Deleted {
		return domain.WorkerStatusRecord{}, ErrWorkerNotFound
	}
	return rec, nil
}

// SetStatus atomically applies mutate to id's status record, retrying on
// concurrent writers the same way MarkDeleted does.
func (o *Oplog) SetStatus(ctx context.Context, id domain.WorkerID, mutate func(*domain.WorkerStatusRecord)) error {
	for attempt := 0; attempt < 8; attempt++ {
		raw, ver, err := o.kv.Get(ctx, statusKey(id))
		if err == kvstore.ErrNotFound {
			return ErrWorkerNotFound
		}
		if err != nil {
			return err
		}
		var rec domain.WorkerStatusRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		if rec.Deleted {
			return ErrWorkerNotFound
		}
		mutate(&rec)
		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := o.kv.CAS(ctx, statusKey(id), ver, encoded); err == kvstore.ErrCASMismatch {
			continue
		} else if err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("oplog: set status: too many CAS retries")
}

// DeleteWorker marks id's status record Deleted, so later GetStatus/
// SetStatus calls report ErrWorkerNotFound. The underlying oplog stream
// is left in place — it is addressed only by worker id, and a deleted
// worker's id is never reused, so an orphaned stream costs nothing but
// space and is simpler than coordinating a second deletion path.
func (o *Oplog) DeleteWorker(ctx context.Context, id domain.WorkerID) error {
	return o.SetStatus(ctx, id, func(rec *domain.WorkerStatusRecord) {
		rec.Deleted = true
	})
}

// FindEffectResult is the central replay invariant: during recovery,
// every side-effecting host call first checks for a matching
// EffectResult at the current replay index before re-performing the
// effect. It returns the recorded result, or ok=false if the entry at
// idx is not an EffectResult for the given call (including if idx is
// past the end of the log, meaning we have caught up to live execution).
func (o *Oplog) FindEffectResult(ctx context.Context, id domain.WorkerID, idx uint64, effect domain.EffectKind, call string) (result domain.EffectResultPayload, ok bool, err error) {
	entries, err := o.Read(ctx, id, idx, idx+1)
	if err != nil {
		return domain.EffectResultPayload{}, false, err
	}
	if len(entries) == 0 {
		return domain.EffectResultPayload{}, false, nil
	}
	entry := entries[0]
	if entry.Kind != domain.EntryEffectResult {
		return domain.EffectResultPayload{}, false, nil
	}
	var payload domain.EffectResultPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return domain.EffectResultPayload{}, false, err
	}
	if payload.Effect != effect || payload.Call != call {
		return domain.EffectResultPayload{}, false, nil
	}
	return payload, true, nil
}
