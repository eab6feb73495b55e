package workerexec

import (
	"context"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/oplog"
)

// overflowNotice is synthesized and delivered in place of an entry the
// subscriber's channel had no room for, so a slow connect_worker client
// observes an explicit gap instead of silently missing log lines.
const overflowNotice = "connect_worker stream overflowed: entries were dropped"

// StreamLog tails worker's oplog starting at fromIdx (typically the
// index the caller last observed, or 0 for a fresh connect_worker
// attach), invoking callback once per entry in index order. Polling
// mirrors internal/executor's streaming callback shape (chunk, isLast,
// err) generalized from one response body to an open-ended oplog tail:
// callback returning a non-nil error stops the stream early, the way a
// client disconnect stops InvokeStream's callback loop.
//
// Back-pressure: StreamLog calls callback synchronously and does not
// poll again until it returns, so a slow callback naturally throttles
// the poll loop rather than buffering unboundedly. bufferSize bounds how
// many freshly-appended entries may accumulate between polls before an
// overflowNotice entry is substituted for the ones that didn't fit.
func StreamLog(ctx context.Context, log *oplog.Oplog, workerID domain.WorkerID, fromIdx uint64, bufferSize int, pollInterval time.Duration, callback func(entry domain.OplogEntry, err error) error) error {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}

	next := fromIdx
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		length, err := log.Len(ctx, workerID)
		if err != nil {
			return callback(domain.OplogEntry{}, err)
		}

		if length > next {
			toIdx := length
			overflowed := false
			if toIdx-next > uint64(bufferSize) {
				overflowed = true
				toIdx = next + uint64(bufferSize)
			}

			entries, err := log.Read(ctx, workerID, next, toIdx)
			if err != nil {
				return callback(domain.OplogEntry{}, err)
			}
			for _, entry := range entries {
				if err := callback(entry, nil); err != nil {
					return err
				}
			}
			next = toIdx

			if overflowed {
				notice := domain.OplogEntry{
					Index:     next,
					Timestamp: time.Now().UTC(),
					Kind:      domain.EntryLog,
				}
				if err := callback(notice, errOverflow{}); err != nil {
					return err
				}
				next = length
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

type errOverflow struct{}

func (errOverflow) Error() string { return overflowNotice }
