package workerexec

import (
	"context"
	"errors"
	"sync"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
)

// Dispatcher composes a Node's cache of live runtimes with an
// invqueue.Queue into the LocalExecutor surface internal/workersvc
// dispatches to once it has resolved this node as a worker's owner. One
// dedicated goroutine per active worker drains that worker's queue
// strictly in FIFO order — a worker's invocations are never executed
// concurrently with each other, only ever one at a time, matching the
// sequential-replay semantics internal/runtime depends on.
type Dispatcher struct {
	node  *Node
	queue invqueue.Queue

	mu      sync.Mutex
	running map[domain.WorkerID]context.CancelFunc
}

func NewDispatcher(node *Node, queue invqueue.Queue) *Dispatcher {
	return &Dispatcher{node: node, queue: queue, running: make(map[domain.WorkerID]context.CancelFunc)}
}

// InvokeAndAwait registers req's key as Pending, ensures a consumer
// goroutine is draining workerID's queue, enqueues req, and blocks for
// its terminal result. Satisfies internal/workersvc.LocalExecutor.
func (d *Dispatcher) InvokeAndAwait(ctx context.Context, workerID domain.WorkerID, status domain.WorkerStatus, req invqueue.Request) (domain.InvocationKey, error) {
	if err := d.queue.Pending(ctx, workerID, req.KeyValue); err != nil {
		return domain.InvocationKey{}, err
	}
	d.ensureConsumer(workerID)
	if err := d.queue.Enqueue(ctx, workerID, status, req); err != nil {
		return domain.InvocationKey{}, err
	}
	return d.queue.Await(ctx, workerID, req.KeyValue)
}

func (d *Dispatcher) ensureConsumer(workerID domain.WorkerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.running[workerID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.running[workerID] = cancel
	go d.consume(ctx, workerID)
}

func (d *Dispatcher) consume(ctx context.Context, workerID domain.WorkerID) {
	for {
		req, ok, err := d.queue.Dequeue(ctx, workerID)
		if err != nil || !ok {
			return
		}

		rt, ic, err := d.node.Acquire(ctx, workerID, req.ContentID)
		if err != nil {
			_ = d.queue.Fail(ctx, workerID, req.KeyValue, asAPIError(err))
			continue
		}

		results, err := rt.Invoke(ctx, ic, req.Function, req.Params, req.Convention, req.KeyValue)
		if err != nil {
			_ = d.queue.Fail(ctx, workerID, req.KeyValue, asAPIError(err))
			continue
		}
		if err := d.queue.Complete(ctx, workerID, req.KeyValue, results); err != nil {
			return
		}
	}
}

// StopWorker cancels workerID's consumer goroutine, e.g. once it has
// transitioned to Failed or Exited and will accept no further work.
func (d *Dispatcher) StopWorker(workerID domain.WorkerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cancel, ok := d.running[workerID]; ok {
		cancel()
		delete(d.running, workerID)
	}
}

// InterruptWorker and ResumeWorker satisfy internal/workersvc.LocalExecutor.
// Both operate on whatever runtime is already cached for workerID,
// acquiring it cold via the template-lookup fallback (Acquire with an
// empty contentID) only if it isn't. d.node.Acquire's fast path returns
// the already-cached runtime directly in the common case of interrupting
// or resuming an actively-tracked worker.
func (d *Dispatcher) InterruptWorker(ctx context.Context, workerID domain.WorkerID, recoverImmediately bool) error {
	rt, _, err := d.node.Acquire(ctx, workerID, "")
	if err != nil {
		return err
	}
	return rt.Interrupt(ctx, recoverImmediately)
}

func (d *Dispatcher) ResumeWorker(ctx context.Context, workerID domain.WorkerID) error {
	rt, _, err := d.node.Acquire(ctx, workerID, "")
	if err != nil {
		return err
	}
	return rt.Resume(ctx)
}

func asAPIError(err error) *domain.APIError {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindRuntimeError, Message: err.Error()})
}
