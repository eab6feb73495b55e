package workersvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/metrics"
	"github.com/oriys/golem/internal/observability"
)

// LocalExecutor is the C6 surface this node's Service dispatches to when
// it owns a worker's shard.
type LocalExecutor interface {
	// InvokeAndAwait enqueues req against workerID (via C5) and blocks
	// for its terminal result.
	InvokeAndAwait(ctx context.Context, workerID domain.WorkerID, status domain.WorkerStatus, req invqueue.Request) (domain.InvocationKey, error)

	// InterruptWorker appends an interrupt marker to the worker's oplog
	// and changes the runtime's state at once. An invocation that is
	// already executing is not stopped and does not observe the marker.
	InterruptWorker(ctx context.Context, workerID domain.WorkerID, recoverImmediately bool) error

	// ResumeWorker transitions a Suspended/Interrupted worker back to
	// Running.
	ResumeWorker(ctx context.Context, workerID domain.WorkerID) error
}

// Forwarder is the transport C8 uses to reach a remote owner; satisfied
// by GRPCForwarder in this package. Kept as an interface so Service can
// be driven by a fake in tests.
type Forwarder interface {
	ForwardInvoke(ctx context.Context, nodeID string, workerID domain.WorkerID, req invqueue.Request) (domain.InvocationKey, error)
	ForwardStream(ctx context.Context, nodeID string, workerID domain.WorkerID, fromIdx uint64, callback func(entry domain.OplogEntry, err error) error) error
	ForwardInterrupt(ctx context.Context, nodeID string, workerID domain.WorkerID, recoverImmediately bool) error
	ForwardResume(ctx context.Context, nodeID string, workerID domain.WorkerID) error
}

// Service is the stateless C8 router: every call resolves ownership
// fresh, so it carries no per-worker state of its own.
type Service struct {
	router     *Router
	local      LocalExecutor
	forwarder  Forwarder
	maxRetries int
}

func NewService(router *Router, local LocalExecutor, forwarder Forwarder, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{router: router, local: local, forwarder: forwarder, maxRetries: maxRetries}
}

// InvokeAndAwait dispatches req to whichever node currently owns
// workerID's shard, retrying up to maxRetries times if the remote node
// reports the shard moved again (domain.KindInvalidShardId) before this
// node's own view of the shard map has caught up.
func (s *Service) InvokeAndAwait(ctx context.Context, workerID domain.WorkerID, status domain.WorkerStatus, req invqueue.Request) (domain.InvocationKey, error) {
	ctx, span := observability.StartSpan(ctx, "golem.workersvc.invoke_and_await",
		observability.AttrWorkerID.String(workerID.String()),
		observability.AttrTemplateID.String(string(workerID.TemplateID)),
		observability.AttrFunctionName.String(req.Function),
		observability.AttrInvocationID.String(req.KeyValue),
	)
	defer span.End()

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.Global().RecordShardMovedRetry()
		}
		nodeID, isLocal, err := s.router.Resolve(ctx, workerID)
		if err != nil {
			observability.SetSpanError(span, err)
			metrics.Global().RecordInvocation(time.Since(start).Milliseconds(), false)
			return domain.InvocationKey{}, err
		}
		if isLocal {
			span.SetAttributes(observability.AttrNodeID.String(s.router.localNodeID))
		} else if nodeID != "" {
			span.SetAttributes(observability.AttrNodeID.String(nodeID))
		}

		var key domain.InvocationKey
		if isLocal {
			key, err = s.local.InvokeAndAwait(ctx, workerID, status, req)
		} else if nodeID == "" {
			err = fmt.Errorf("workersvc: no live node owns worker %s", workerID.String())
		} else {
			key, err = s.forwarder.ForwardInvoke(ctx, nodeID, workerID, req)
			if err == nil {
				metrics.Global().RecordForward()
			}
		}

		if err == nil {
			observability.SetSpanOK(span)
			metrics.Global().RecordInvocation(time.Since(start).Milliseconds(), true)
			return key, nil
		}
		if !isShardMoved(err) {
			observability.SetSpanError(span, err)
			metrics.Global().RecordInvocation(time.Since(start).Milliseconds(), false)
			return domain.InvocationKey{}, err
		}
		lastErr = err
	}
	observability.SetSpanError(span, lastErr)
	metrics.Global().RecordInvocation(time.Since(start).Milliseconds(), false)
	return domain.InvocationKey{}, fmt.Errorf("workersvc: exhausted %d retries resolving shard for worker %s: %w", s.maxRetries, workerID.String(), lastErr)
}

// ConnectWorker streams workerID's oplog from fromIdx, dispatching
// locally or forwarding exactly like InvokeAndAwait, but it does not
// retry on shard movement — a streaming client is expected to reconnect
// itself once ConnectWorker returns the shard-moved error, since
// mid-stream retry would silently skip or duplicate entries.
func (s *Service) ConnectWorker(ctx context.Context, workerID domain.WorkerID, fromIdx uint64, streamLocal func(ctx context.Context, workerID domain.WorkerID, fromIdx uint64, callback func(domain.OplogEntry, error) error) error, callback func(domain.OplogEntry, error) error) error {
	nodeID, isLocal, err := s.router.Resolve(ctx, workerID)
	if err != nil {
		return err
	}
	if isLocal {
		return streamLocal(ctx, workerID, fromIdx, callback)
	}
	if nodeID == "" {
		return fmt.Errorf("workersvc: no live node owns worker %s", workerID.String())
	}
	return s.forwarder.ForwardStream(ctx, nodeID, workerID, fromIdx, callback)
}

// InterruptWorker and ResumeWorker dispatch like InvokeAndAwait: resolve
// the current owner fresh, dispatch local-or-forward, retry up to
// maxRetries times on a shard-moved signal.
func (s *Service) InterruptWorker(ctx context.Context, workerID domain.WorkerID, recoverImmediately bool) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		nodeID, isLocal, err := s.router.Resolve(ctx, workerID)
		if err != nil {
			return err
		}
		if isLocal {
			err = s.local.InterruptWorker(ctx, workerID, recoverImmediately)
		} else if nodeID == "" {
			err = fmt.Errorf("workersvc: no live node owns worker %s", workerID.String())
		} else {
			err = s.forwarder.ForwardInterrupt(ctx, nodeID, workerID, recoverImmediately)
		}
		if err == nil {
			return nil
		}
		if !isShardMoved(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("workersvc: exhausted %d retries resolving shard for worker %s: %w", s.maxRetries, workerID.String(), lastErr)
}

func (s *Service) ResumeWorker(ctx context.Context, workerID domain.WorkerID) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		nodeID, isLocal, err := s.router.Resolve(ctx, workerID)
		if err != nil {
			return err
		}
		if isLocal {
			err = s.local.ResumeWorker(ctx, workerID)
		} else if nodeID == "" {
			err = fmt.Errorf("workersvc: no live node owns worker %s", workerID.String())
		} else {
			err = s.forwarder.ForwardResume(ctx, nodeID, workerID)
		}
		if err == nil {
			return nil
		}
		if !isShardMoved(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("workersvc: exhausted %d retries resolving shard for worker %s: %w", s.maxRetries, workerID.String(), lastErr)
}

func isShardMoved(err error) bool {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Worker != nil && apiErr.Worker.Kind == domain.KindInvalidShardId
	}
	return false
}
