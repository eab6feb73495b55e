package workersvc

import (
	"context"
	"errors"
	"testing"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
)

type fakeShards struct {
	ownerSequence []string // consumed one per Resolve call; last value repeats
	calls         int
	localID       string
}

func (f *fakeShards) Owns(context.Context, domain.WorkerID) (bool, error) {
	owner := f.currentOwner()
	f.calls++
	return owner == f.localID, nil
}

func (f *fakeShards) OwnerOf(domain.WorkerID) string {
	return f.currentOwner()
}

func (f *fakeShards) currentOwner() string {
	idx := f.calls
	if idx >= len(f.ownerSequence) {
		idx = len(f.ownerSequence) - 1
	}
	return f.ownerSequence[idx]
}

type fakeLocal struct {
	result domain.InvocationKey
	err    error
}

func (f *fakeLocal) InvokeAndAwait(context.Context, domain.WorkerID, domain.WorkerStatus, invqueue.Request) (domain.InvocationKey, error) {
	return f.result, f.err
}

func (f *fakeLocal) InterruptWorker(context.Context, domain.WorkerID, bool) error { return f.err }

func (f *fakeLocal) ResumeWorker(context.Context, domain.WorkerID) error { return f.err }

type fakeForwarder struct {
	shardMovedUntilCall int
	calls               int
	finalResult         domain.InvocationKey
}

func (f *fakeForwarder) ForwardInvoke(context.Context, string, domain.WorkerID, invqueue.Request) (domain.InvocationKey, error) {
	f.calls++
	if f.calls <= f.shardMovedUntilCall {
		return domain.InvocationKey{}, domain.InvalidShardId(0, nil)
	}
	return f.finalResult, nil
}

func (f *fakeForwarder) ForwardStream(context.Context, string, domain.WorkerID, uint64, func(domain.OplogEntry, error) error) error {
	return nil
}

func (f *fakeForwarder) ForwardInterrupt(context.Context, string, domain.WorkerID, bool) error {
	return nil
}

func (f *fakeForwarder) ForwardResume(context.Context, string, domain.WorkerID) error {
	return nil
}

func TestLocalDispatchWhenOwned(t *testing.T) {
	shards := &fakeShards{ownerSequence: []string{"local"}, localID: "local"}
	router := NewRouter(shards, "local")
	local := &fakeLocal{result: domain.InvocationKey{State: domain.KeyCompleted}}
	svc := NewService(router, local, &fakeForwarder{}, 3)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	key, err := svc.InvokeAndAwait(context.Background(), workerID, domain.StatusRunning, invqueue.Request{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if key.State != domain.KeyCompleted {
		t.Fatalf("expected Completed, got %s", key.State)
	}
}

func TestForwardsWhenRemoteOwner(t *testing.T) {
	shards := &fakeShards{ownerSequence: []string{"remote"}, localID: "local"}
	router := NewRouter(shards, "local")
	forwarder := &fakeForwarder{finalResult: domain.InvocationKey{State: domain.KeyCompleted}}
	svc := NewService(router, &fakeLocal{}, forwarder, 3)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	key, err := svc.InvokeAndAwait(context.Background(), workerID, domain.StatusRunning, invqueue.Request{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if key.State != domain.KeyCompleted {
		t.Fatalf("expected Completed, got %s", key.State)
	}
	if forwarder.calls != 1 {
		t.Fatalf("expected exactly one forward call, got %d", forwarder.calls)
	}
}

// TestBoundedRetryOnShardMoved exercises the C8 property from spec.md
// §8: a shard-moved response triggers bounded retry, not infinite
// retry and not an immediate hard failure.
func TestBoundedRetryOnShardMoved(t *testing.T) {
	shards := &fakeShards{ownerSequence: []string{"remote"}, localID: "local"}
	router := NewRouter(shards, "local")
	forwarder := &fakeForwarder{shardMovedUntilCall: 2, finalResult: domain.InvocationKey{State: domain.KeyCompleted}}
	svc := NewService(router, &fakeLocal{}, forwarder, 3)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	key, err := svc.InvokeAndAwait(context.Background(), workerID, domain.StatusRunning, invqueue.Request{})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if key.State != domain.KeyCompleted {
		t.Fatalf("expected eventual success, got state %s", key.State)
	}
	if forwarder.calls != 3 {
		t.Fatalf("expected 3 forward attempts (2 shard-moved + 1 success), got %d", forwarder.calls)
	}
}

func TestRetryExhaustionReturnsError(t *testing.T) {
	shards := &fakeShards{ownerSequence: []string{"remote"}, localID: "local"}
	router := NewRouter(shards, "local")
	forwarder := &fakeForwarder{shardMovedUntilCall: 100}
	svc := NewService(router, &fakeLocal{}, forwarder, 2)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	_, err := svc.InvokeAndAwait(context.Background(), workerID, domain.StatusRunning, invqueue.Request{})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if forwarder.calls != 3 {
		t.Fatalf("expected maxRetries+1=3 attempts, got %d", forwarder.calls)
	}
}

func TestNonShardMovedErrorStopsImmediately(t *testing.T) {
	shards := &fakeShards{ownerSequence: []string{"local"}, localID: "local"}
	router := NewRouter(shards, "local")
	local := &fakeLocal{err: errors.New("boom")}
	svc := NewService(router, local, &fakeForwarder{}, 3)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	_, err := svc.InvokeAndAwait(context.Background(), workerID, domain.StatusRunning, invqueue.Request{})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected immediate non-shard-moved error, got %v", err)
	}
}
