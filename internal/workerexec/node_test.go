package workerexec

import (
	"context"
	"testing"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/runtime"
	"github.com/oriys/golem/internal/wasmhost"
)

type alwaysOwn struct{}

func (alwaysOwn) Owns(context.Context, domain.WorkerID) (bool, error) { return true, nil }

func noopExport(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
	return nil, nil
}

func newTestNode(t *testing.T, capacity int) (*Node, *oplog.Oplog) {
	t.Helper()
	log := oplog.New(kvstore.NewMemory())
	reg := wasmhost.NewRegistry()
	reg.Register("content-1", "run", noopExport)
	n := New(capacity, alwaysOwn{}, log, reg, nil, func(domain.WorkerID) runtime.Deps { return runtime.Deps{} })
	return n, log
}

func TestAcquireCachesAndReusesRuntime(t *testing.T) {
	n, _ := newTestNode(t, 2)
	w := domain.WorkerID{TemplateID: "tpl", Name: "w1"}

	rt1, _, err := n.Acquire(context.Background(), w, "content-1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	rt2, _, err := n.Acquire(context.Background(), w, "content-1")
	if err != nil {
		t.Fatalf("acquire again: %v", err)
	}
	if rt1 != rt2 {
		t.Fatalf("expected cached runtime to be reused")
	}
	size, capacity := n.Stats()
	if size != 1 || capacity != 2 {
		t.Fatalf("expected size=1 cap=2, got size=%d cap=%d", size, capacity)
	}
}

func TestEvictionOnlyTargetsSuspendedWorkers(t *testing.T) {
	n, _ := newTestNode(t, 1)
	w1 := domain.WorkerID{TemplateID: "tpl", Name: "w1"}
	w2 := domain.WorkerID{TemplateID: "tpl", Name: "w2"}

	rt1, _, err := n.Acquire(context.Background(), w1, "content-1")
	if err != nil {
		t.Fatalf("acquire w1: %v", err)
	}
	// w1 is still Running (Load leaves it Running): a second distinct
	// worker must be rejected, not silently evict w1.
	if _, _, err := n.Acquire(context.Background(), w2, "content-1"); err == nil {
		t.Fatalf("expected capacity rejection while w1 is Running")
	}

	if err := rt1.Suspend(context.Background()); err != nil {
		t.Fatalf("suspend w1: %v", err)
	}

	rt2, _, err := n.Acquire(context.Background(), w2, "content-1")
	if err != nil {
		t.Fatalf("acquire w2 after w1 suspended: %v", err)
	}
	if rt2 == nil {
		t.Fatalf("expected w2 runtime")
	}

	size, _ := n.Stats()
	if size != 1 {
		t.Fatalf("expected cache size 1 after eviction, got %d", size)
	}
}
