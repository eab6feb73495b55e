// Package workerexec implements the Worker Executor Node (C6): a bounded
// cache of live worker runtimes admitted under shard ownership, with
// LRU eviction restricted to Suspended workers (a Running worker is
// never evicted out from under an in-flight invocation), plus log
// streaming for connect_worker. Grounded on internal/pool.Pool's bounded
// warm-VM cache (mutex-guarded map + explicit eviction policy, singleflight
// against duplicate concurrent loads of the same key) and
// internal/executor's single-choke-point Invoke pipeline.
package workerexec

import (
	"container/list"
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/logging"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/runtime"
	"github.com/oriys/golem/internal/template"
	"github.com/oriys/golem/internal/wasmhost"
)

// Ownership lets the node confirm it still owns workerID's shard before
// admitting it into the cache. Satisfied by internal/shardmgr; kept as
// an interface here so workerexec has no import-time dependency on the
// shard manager's implementation.
type Ownership interface {
	Owns(ctx context.Context, workerID domain.WorkerID) (bool, error)
}

// DepsFactory builds the capability bundle a worker's runtime executes
// against. Workers belonging to different templates may need different
// capability wiring (e.g. a different RPC client scoped to the account),
// so this is a function of WorkerID rather than a single static Deps.
type DepsFactory func(workerID domain.WorkerID) runtime.Deps

type cacheEntry struct {
	rt      *runtime.Runtime
	ic      *runtime.Interceptor
	element *list.Element // position in lru; nil once removed
}

// Node is one Worker Executor Node: a bounded, LRU-managed cache of live
// runtime.Runtime instances, admitted only for workers this node's shard
// assignment currently owns.
type Node struct {
	mu       sync.Mutex
	capacity int
	entries  map[domain.WorkerID]*cacheEntry
	lru      *list.List // front = most recently used

	ownership Ownership
	log       *oplog.Oplog
	registry  *wasmhost.Registry
	templates template.Store
	deps      DepsFactory

	loadGroup singleflight.Group
}

func New(capacity int, ownership Ownership, log *oplog.Oplog, registry *wasmhost.Registry, templates template.Store, deps DepsFactory) *Node {
	return &Node{
		capacity:  capacity,
		entries:   make(map[domain.WorkerID]*cacheEntry),
		lru:       list.New(),
		ownership: ownership,
		log:       log,
		registry:  registry,
		templates: templates,
		deps:      deps,
	}
}

// Acquire returns the live runtime for workerID, loading it from the
// oplog if it is not already cached. It fails if this node does not own
// workerID's shard, or if the cache is full of Running workers with no
// Suspended entry available to evict.
func (n *Node) Acquire(ctx context.Context, workerID domain.WorkerID, contentID string) (*runtime.Runtime, *runtime.Interceptor, error) {
	owns, err := n.ownership.Owns(ctx, workerID)
	if err != nil {
		return nil, nil, err
	}
	if !owns {
		return nil, nil, domain.InvalidShardId(0, nil)
	}

	n.mu.Lock()
	if e, ok := n.entries[workerID]; ok {
		n.lru.MoveToFront(e.element)
		n.mu.Unlock()
		return e.rt, e.ic, nil
	}
	n.mu.Unlock()

	v, err, _ := n.loadGroup.Do(workerID.String(), func() (any, error) {
		rt, ic, err := n.load(ctx, workerID, contentID)
		if err != nil {
			return nil, err
		}
		return [2]any{rt, ic}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	pair := v.([2]any)
	return pair[0].(*runtime.Runtime), pair[1].(*runtime.Interceptor), nil
}

func (n *Node) load(ctx context.Context, workerID domain.WorkerID, contentID string) (*runtime.Runtime, *runtime.Interceptor, error) {
	n.mu.Lock()
	if e, ok := n.entries[workerID]; ok {
		n.lru.MoveToFront(e.element)
		n.mu.Unlock()
		return e.rt, e.ic, nil
	}
	n.mu.Unlock()

	if contentID == "" {
		tpl, err := n.templates.GetLatest(ctx, workerID.TemplateID)
		if err != nil {
			return nil, nil, domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindGetLatestVersionOfTemplateFailed, Message: err.Error()})
		}
		contentID = tpl.ContentID
	}

	n.mu.Lock()
	if len(n.entries) >= n.capacity {
		if !n.evictOneSuspendedLocked() {
			n.mu.Unlock()
			return nil, nil, domain.NewLimitExceeded("worker executor cache is full of running workers")
		}
	}
	n.mu.Unlock()

	rt := runtime.New(workerID, contentID, n.log, n.registry, n.deps(workerID))
	ic, err := rt.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	entry := &cacheEntry{rt: rt, ic: ic}
	entry.element = n.lru.PushFront(workerID)
	n.entries[workerID] = entry
	logging.Op().Info("worker admitted", "worker_id", workerID.String())
	return rt, ic, nil
}

// evictOneSuspendedLocked walks the cache from least-recently-used to
// most, evicting the first Suspended entry it finds. Running workers are
// never evicted: an in-flight invocation must never be pulled out from
// under itself. Returns false if no evictable entry exists.
func (n *Node) evictOneSuspendedLocked() bool {
	for e := n.lru.Back(); e != nil; e = e.Prev() {
		workerID := e.Value.(domain.WorkerID)
		entry := n.entries[workerID]
		if entry.rt.State() != runtime.StateSuspended {
			continue
		}
		n.lru.Remove(e)
		delete(n.entries, workerID)
		logging.Op().Info("worker evicted", "worker_id", workerID.String())
		return true
	}
	return false
}

// Release marks workerID as idle in the cache's LRU ordering without
// removing it; the caller is expected to have already driven the
// runtime's own state transition (Suspend) beforehand. It exists
// separately from Acquire's automatic LRU touch so executors can signal
// "this worker just went idle and is now evictable" explicitly.
func (n *Node) Release(workerID domain.WorkerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.entries[workerID]; ok {
		n.lru.MoveToBack(e.element)
	}
}

// Evict forcibly removes workerID from the cache regardless of state,
// for use when a worker has transitioned to Failed or Exited and will
// never run again.
func (n *Node) Evict(workerID domain.WorkerID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.entries[workerID]; ok {
		n.lru.Remove(e.element)
		delete(n.entries, workerID)
	}
}

func (n *Node) Stats() (size, capacity int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries), n.capacity
}
