package oplog

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/kvstore"
)

func testWorker() domain.WorkerID {
	return domain.WorkerID{TemplateID: "tpl", Name: "w1"}
}

func TestAppendReadOrdering(t *testing.T) {
	log := New(kvstore.NewMemory())
	ctx := context.Background()
	id := testWorker()

	for i := 0; i < 3; i++ {
		idx, err := log.Append(ctx, id, domain.EntryLog, map[string]int{"i": i})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if idx != uint64(i) {
			t.Fatalf("expected index %d, got %d", i, idx)
		}
	}

	entries, err := log.Read(ctx, id, 0, 0)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Index != uint64(i) {
			t.Fatalf("entry %d has index %d", i, e.Index)
		}
	}
}

func TestFindEffectResultMatchesOnIndexEffectAndCall(t *testing.T) {
	log := New(kvstore.NewMemory())
	ctx := context.Background()
	id := testWorker()

	if _, err := log.Append(ctx, id, domain.EntryEffectResult, domain.EffectResultPayload{
		Effect: domain.EffectClock,
		Call:   "now",
		Result: nil,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, ok, err := log.FindEffectResult(ctx, id, 0, domain.EffectClock, "now"); err != nil || !ok {
		t.Fatalf("expected a match, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := log.FindEffectResult(ctx, id, 0, domain.EffectRandom, "now"); err != nil || ok {
		t.Fatalf("expected no match for a different effect kind")
	}
	if _, ok, err := log.FindEffectResult(ctx, id, 1, domain.EffectClock, "now"); err != nil || ok {
		t.Fatalf("expected no match past the end of the log, got ok=%v err=%v", ok, err)
	}
}

func TestStatusLifecycle(t *testing.T) {
	log := New(kvstore.NewMemory())
	ctx := context.Background()
	id := testWorker()

	if err := log.CreateStatus(ctx, domain.WorkerStatusRecord{WorkerID: id, Status: domain.StatusRunning, CreatedAt: time.Unix(0, 0)}); err != nil {
		t.Fatalf("create status: %v", err)
	}
	if err := log.CreateStatus(ctx, domain.WorkerStatusRecord{WorkerID: id}); err != ErrWorkerExists {
		t.Fatalf("expected ErrWorkerExists on duplicate create, got %v", err)
	}

	rec, err := log.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if rec.Status != domain.StatusRunning {
		t.Fatalf("expected Running, got %s", rec.Status)
	}

	if err := log.SetStatus(ctx, id, func(r *domain.WorkerStatusRecord) { r.Status = domain.StatusSuspended }); err != nil {
		t.Fatalf("set status: %v", err)
	}
	rec, err = log.GetStatus(ctx, id)
	if err != nil || rec.Status != domain.StatusSuspended {
		t.Fatalf("expected Suspended after set status, got %+v err=%v", rec, err)
	}

	if err := log.DeleteWorker(ctx, id); err != nil {
		t.Fatalf("delete worker: %v", err)
	}
	if _, err := log.GetStatus(ctx, id); err != ErrWorkerNotFound {
		t.Fatalf("expected ErrWorkerNotFound after delete, got %v", err)
	}
	if err := log.SetStatus(ctx, id, func(r *domain.WorkerStatusRecord) {}); err != ErrWorkerNotFound {
		t.Fatalf("expected ErrWorkerNotFound on set status after delete, got %v", err)
	}
}

func TestGetStatusUnknownWorker(t *testing.T) {
	log := New(kvstore.NewMemory())
	if _, err := log.GetStatus(context.Background(), testWorker()); err != ErrWorkerNotFound {
		t.Fatalf("expected ErrWorkerNotFound, got %v", err)
	}
}
