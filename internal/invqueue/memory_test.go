package invqueue

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/golem/internal/domain"
)

func TestEnqueueRejectsOnTerminalStatus(t *testing.T) {
	q := NewMemory()
	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}

	if err := q.Enqueue(context.Background(), workerID, domain.StatusFailed, Request{KeyValue: "k1"}); err != ErrWorkerTerminal {
		t.Fatalf("expected ErrWorkerTerminal for Failed, got %v", err)
	}
	if err := q.Enqueue(context.Background(), workerID, domain.StatusExited, Request{KeyValue: "k2"}); err != ErrWorkerTerminal {
		t.Fatalf("expected ErrWorkerTerminal for Exited, got %v", err)
	}
	if err := q.Enqueue(context.Background(), workerID, domain.StatusRunning, Request{KeyValue: "k3"}); err != nil {
		t.Fatalf("expected Running enqueue to succeed, got %v", err)
	}
}

func TestStrictFIFODrain(t *testing.T) {
	q := NewMemory()
	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}

	for _, k := range []string{"a", "b", "c"} {
		if err := q.Enqueue(context.Background(), workerID, domain.StatusRunning, Request{KeyValue: k}); err != nil {
			t.Fatalf("enqueue %s: %v", k, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		req, ok, err := q.Dequeue(context.Background(), workerID)
		if err != nil || !ok {
			t.Fatalf("dequeue: ok=%v err=%v", ok, err)
		}
		if req.KeyValue != want {
			t.Fatalf("expected %s, got %s", want, req.KeyValue)
		}
	}
}

// TestIdempotentAwaitViaInvocationKey exercises spec.md §8's invocation-key
// idempotency property: multiple concurrent Awaiters on the same pending
// key all observe the same terminal result, and an Await issued after the
// key has already gone terminal returns immediately with that same result
// rather than blocking or erroring.
func TestIdempotentAwaitViaInvocationKey(t *testing.T) {
	q := NewMemory()
	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}

	if err := q.Pending(context.Background(), workerID, "key-1"); err != nil {
		t.Fatalf("pending: %v", err)
	}

	type outcome struct {
		key domain.InvocationKey
		err error
	}
	results := make(chan outcome, 3)
	for i := 0; i < 3; i++ {
		go func() {
			k, err := q.Await(context.Background(), workerID, "key-1")
			results <- outcome{k, err}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if err := q.Complete(context.Background(), workerID, "key-1", []domain.Value{domain.S64(42)}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	for i := 0; i < 3; i++ {
		o := <-results
		if o.err != nil {
			t.Fatalf("await %d: %v", i, o.err)
		}
		if o.key.State != domain.KeyCompleted {
			t.Fatalf("await %d: expected Completed, got %s", i, o.key.State)
		}
		if len(o.key.Result) != 1 || o.key.Result[0].Kind != domain.KindS64 {
			t.Fatalf("await %d: unexpected result %+v", i, o.key.Result)
		}
	}

	// A later Await after the terminal transition must not block.
	late, err := q.Await(context.Background(), workerID, "key-1")
	if err != nil {
		t.Fatalf("late await: %v", err)
	}
	if late.State != domain.KeyCompleted {
		t.Fatalf("expected Completed on late await, got %s", late.State)
	}

	// A repeated Complete/Fail after terminal must be a no-op, not
	// overwrite the recorded result.
	if err := q.Fail(context.Background(), workerID, "key-1", domain.NewBadRequest("should not apply")); err != nil {
		t.Fatalf("fail after terminal: %v", err)
	}
	again, _ := q.Await(context.Background(), workerID, "key-1")
	if again.State != domain.KeyCompleted {
		t.Fatalf("expected terminal state to stay Completed, got %s", again.State)
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMemory()
	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}

	done := make(chan Request, 1)
	go func() {
		req, ok, err := q.Dequeue(context.Background(), workerID)
		if err != nil || !ok {
			t.Errorf("dequeue: ok=%v err=%v", ok, err)
			return
		}
		done <- req
	}()

	time.Sleep(10 * time.Millisecond)
	if err := q.Enqueue(context.Background(), workerID, domain.StatusRunning, Request{KeyValue: "late"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	select {
	case req := <-done:
		if req.KeyValue != "late" {
			t.Fatalf("expected 'late', got %s", req.KeyValue)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue to unblock")
	}
}
