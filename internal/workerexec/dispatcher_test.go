package workerexec

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/runtime"
	"github.com/oriys/golem/internal/wasmhost"
)

func echoExport(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
	return params, nil
}

func TestDispatcherInvokeAndAwaitRoundTrip(t *testing.T) {
	log := oplog.New(kvstore.NewMemory())
	reg := wasmhost.NewRegistry()
	reg.Register("content-1", "echo", echoExport)
	node := New(4, alwaysOwn{}, log, reg, nil, func(domain.WorkerID) runtime.Deps { return runtime.Deps{} })

	queue := invqueue.NewMemory()
	d := NewDispatcher(node, queue)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "echo-1"}
	req := invqueue.Request{KeyValue: "req-1", Function: "echo", Params: []domain.Value{domain.S32(7)}, Convention: domain.ConventionComponent, ContentID: "content-1"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key, err := d.InvokeAndAwait(ctx, workerID, domain.StatusRunning, req)
	if err != nil {
		t.Fatalf("invoke and await: %v", err)
	}
	if key.State != domain.KeyCompleted {
		t.Fatalf("expected Completed, got %s", key.State)
	}
	if len(key.Result) != 1 || key.Result[0].Kind != domain.KindS32 {
		t.Fatalf("unexpected result %+v", key.Result)
	}
}

// TestDispatcherIdempotentOnRepeatedKey exercises await-by-key
// idempotency through the full node+queue composition: awaiting the same
// key twice after one enqueue returns the stored result both times and
// runs the export only once.
func TestDispatcherIdempotentOnRepeatedKey(t *testing.T) {
	log := oplog.New(kvstore.NewMemory())
	reg := wasmhost.NewRegistry()
	calls := 0
	reg.Register("content-1", "count", func(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
		calls++
		return []domain.Value{domain.S32(int32(calls))}, nil
	})
	node := New(4, alwaysOwn{}, log, reg, nil, func(domain.WorkerID) runtime.Deps { return runtime.Deps{} })
	queue := invqueue.NewMemory()
	d := NewDispatcher(node, queue)

	workerID := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	req := invqueue.Request{KeyValue: "dup-key", Function: "count", Convention: domain.ConventionComponent, ContentID: "content-1"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.queue.Pending(ctx, workerID, req.KeyValue); err != nil {
		t.Fatalf("pending: %v", err)
	}
	d.ensureConsumer(workerID)
	if err := d.queue.Enqueue(ctx, workerID, domain.StatusRunning, req); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	key1, err := d.queue.Await(ctx, workerID, req.KeyValue)
	if err != nil {
		t.Fatalf("await 1: %v", err)
	}
	key2, err := d.queue.Await(ctx, workerID, req.KeyValue)
	if err != nil {
		t.Fatalf("await 2: %v", err)
	}
	if key1.Result[0].Kind != domain.KindS32 || key2.Result[0].Kind != domain.KindS32 {
		t.Fatalf("expected S32 results")
	}
	if calls != 1 {
		t.Fatalf("expected the export to run exactly once, ran %d times", calls)
	}
}
