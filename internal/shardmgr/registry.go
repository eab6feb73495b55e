// Package shardmgr implements the Shard Manager (C7): the authoritative
// mapping from worker to owning executor node, assigned by
// shard_id = hash(worker_id) mod shardCount, with heartbeat-based node
// membership and deterministic minimal-movement rebalance on node
// loss/join. Grounded on internal/cluster.Registry's heartbeat-ticker +
// health-check + SyncFromStore membership loop, adapted from a
// VM-scheduling node registry to a shard-ownership registry: membership
// is shared the same way, through a record in C2's kvstore.Store rather
// than a dedicated gossip or join RPC, so any node sharing that store
// can discover every other live node.
package shardmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/logging"
	"github.com/oriys/golem/internal/metrics"
)

// membersKey is the single status cell every node's membership record is
// merged into, read/written through kvstore.Store's CAS so concurrent
// registrations never clobber each other.
const membersKey = "shardmgr:members"

// NodeState mirrors internal/cluster.NodeState's three-state lifecycle,
// narrowed to what shard assignment needs.
type NodeState string

const (
	NodeActive   NodeState = "Active"
	NodeInactive NodeState = "Inactive"
)

// Member is one executor node's membership record. Addr is its control
// plane gRPC address, the address a Forwarder dials to reach it.
type Member struct {
	NodeID        string    `json:"node_id"`
	Addr          string    `json:"addr"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	State         NodeState `json:"state"`
}

func (m *Member) isHealthy(timeout time.Duration) bool {
	return m.State == NodeActive && time.Since(m.LastHeartbeat) <= timeout
}

// ShardCount is the fixed number of shards the worker-id space is hashed
// into; shard ownership is reassigned among live nodes, but the shard
// count itself never changes, so hash(worker_id) mod ShardCount is
// stable across the whole cluster's lifetime.
const ShardCount = 1024

// HashWorkerID returns worker_id's shard: hash(worker_id) mod ShardCount.
func HashWorkerID(id domain.WorkerID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id.String()))
	return h.Sum32() % ShardCount
}

// Registry tracks node membership via heartbeats and computes the current
// shard->node assignment, grounded on internal/cluster.Registry's
// heartbeat-ticker + health-check + store-sync loop.
type Registry struct {
	mu               sync.RWMutex
	store            kvstore.Store // nil in single-node/test mode: no cross-process sync
	localNodeID      string
	localAddr        string
	members          map[string]*Member
	heartbeatTimeout time.Duration

	assignment [ShardCount]string // shard id -> owning node id, "" if unassigned
	stopCh     chan struct{}
}

type Config struct {
	NodeID              string
	Addr                string
	HeartbeatInterval   time.Duration
	HealthCheckInterval time.Duration
	HeartbeatTimeout    time.Duration
}

func DefaultConfig(nodeID string) *Config {
	return &Config{
		NodeID:              nodeID,
		HeartbeatInterval:   5 * time.Second,
		HealthCheckInterval: 10 * time.Second,
		HeartbeatTimeout:    30 * time.Second,
	}
}

// NewRegistry builds a registry that registers the local node and, when
// store is non-nil, mirrors every membership change into it so other
// node processes sharing the same store can discover this node (and this
// node can discover them) via SyncFromStore. store may be nil for
// single-node use and tests, in which case membership is local-process
// only, exactly as before.
func NewRegistry(store kvstore.Store, cfg *Config) *Registry {
	if cfg == nil {
		cfg = DefaultConfig("node-local")
	}
	r := &Registry{
		store:            store,
		localNodeID:      cfg.NodeID,
		localAddr:        cfg.Addr,
		members:          make(map[string]*Member),
		heartbeatTimeout: cfg.HeartbeatTimeout,
		stopCh:           make(chan struct{}),
	}
	r.RegisterNode(cfg.NodeID)
	r.rebalanceLocked()
	return r
}

// RegisterNode admits nodeID into local membership (or refreshes it if
// already present), mirrors it to the shared store when registering the
// local node, and triggers a rebalance.
func (r *Registry) RegisterNode(nodeID string) {
	r.mu.Lock()
	addr := ""
	if nodeID == r.localNodeID {
		addr = r.localAddr
	} else if existing, ok := r.members[nodeID]; ok {
		addr = existing.Addr
	}
	r.members[nodeID] = &Member{NodeID: nodeID, Addr: addr, LastHeartbeat: time.Now(), State: NodeActive}
	r.rebalanceLocked()
	r.mu.Unlock()

	logging.Op().Info("shard manager: node registered", "node_id", nodeID)
	if nodeID == r.localNodeID {
		r.persistLocal()
	}
}

// Heartbeat refreshes nodeID's liveness without forcing a rebalance; a
// rebalance only needs to run when membership actually changes
// (CheckHealth finding a dead node, or RegisterNode/RemoveNode).
func (r *Registry) Heartbeat(nodeID string) error {
	r.mu.Lock()
	m, ok := r.members[nodeID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("shardmgr: unknown node %s", nodeID)
	}
	m.LastHeartbeat = time.Now()
	m.State = NodeActive
	r.mu.Unlock()

	if nodeID == r.localNodeID {
		r.persistLocal()
	}
	return nil
}

// RemoveNode evicts nodeID from local membership and rebalances its
// shards onto the remaining live nodes.
func (r *Registry) RemoveNode(nodeID string) {
	r.mu.Lock()
	delete(r.members, nodeID)
	r.rebalanceLocked()
	r.mu.Unlock()
	logging.Op().Info("shard manager: node removed", "node_id", nodeID)
}

// CheckHealth marks any node whose heartbeat has expired as Inactive and
// rebalances its shards away. Intended to be driven by a periodic ticker,
// mirroring internal/cluster.Registry.checkNodeHealth.
func (r *Registry) CheckHealth() {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for id, m := range r.members {
		if m.State == NodeActive && !m.isHealthy(r.heartbeatTimeout) {
			m.State = NodeInactive
			changed = true
			logging.Op().Warn("shard manager: node became unhealthy", "node_id", id, "last_heartbeat", m.LastHeartbeat)
		}
	}
	if changed {
		r.rebalanceLocked()
	}
}

// persistLocal merges this node's own membership record into the shared
// store's members cell via a CAS read-modify-write loop, so the store
// never needs a native list-keys-by-prefix primitive — membership for
// the whole cluster lives in one versioned blob.
func (r *Registry) persistLocal() {
	if r.store == nil {
		return
	}
	ctx := context.Background()
	r.mu.RLock()
	local, ok := r.members[r.localNodeID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	localCopy := *local

	for attempt := 0; attempt < 5; attempt++ {
		raw, version, err := r.store.Get(ctx, membersKey)
		all := map[string]Member{}
		if err == nil {
			_ = json.Unmarshal(raw, &all)
		} else if err != kvstore.ErrNotFound {
			logging.Op().Warn("shard manager: read members record failed", "error", err)
			return
		}
		all[localCopy.NodeID] = localCopy
		encoded, err := json.Marshal(all)
		if err != nil {
			logging.Op().Warn("shard manager: encode members record failed", "error", err)
			return
		}
		if err := r.store.CAS(ctx, membersKey, version, encoded); err != nil {
			if err == kvstore.ErrCASMismatch {
				continue // another node updated concurrently; retry with a fresh read
			}
			logging.Op().Warn("shard manager: persist members record failed", "error", err)
			return
		}
		return
	}
	logging.Op().Warn("shard manager: persist members record gave up after repeated CAS conflicts")
}

// SyncFromStore refreshes remote node membership from the shared store.
// The local node's own record is never overwritten from the store; it is
// this process's own liveness that matters, not a stale copy of it.
func (r *Registry) SyncFromStore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	raw, _, err := r.store.Get(ctx, membersKey)
	if err == kvstore.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	var all map[string]Member
	if err := json.Unmarshal(raw, &all); err != nil {
		return fmt.Errorf("shardmgr: decode members record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	changed := false
	for id, rec := range all {
		if id == r.localNodeID {
			continue
		}
		rec := rec
		existing, ok := r.members[id]
		if !ok || existing.LastHeartbeat != rec.LastHeartbeat || existing.State != rec.State || existing.Addr != rec.Addr {
			r.members[id] = &rec
			changed = true
		}
	}
	if changed {
		r.rebalanceLocked()
	}
	return nil
}

// Run drives this node's own heartbeat renewal, SyncFromStore, and
// CheckHealth on interval until stop fires or Stop is called. The local
// node must renew its own heartbeat here or CheckHealth would eventually
// evict it from its own membership view along with everyone else's.
func (r *Registry) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.Heartbeat(r.localNodeID); err != nil {
				logging.Op().Warn("shard manager: local heartbeat failed", "error", err)
			}
			if err := r.SyncFromStore(context.Background()); err != nil {
				logging.Op().Warn("shard manager: sync from store failed", "error", err)
			}
			r.CheckHealth()
		}
	}
}

func (r *Registry) Stop() { close(r.stopCh) }

// Owns reports whether the local node currently owns workerID's shard.
// It takes a context (unused) and returns an error-shaped signature
// solely to satisfy internal/workerexec.Ownership — shard lookups never
// actually fail or block, so ctx is accepted for interface compatibility
// and the error return is always nil.
func (r *Registry) Owns(_ context.Context, workerID domain.WorkerID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shard := HashWorkerID(workerID)
	return r.assignment[shard] == r.localNodeID, nil
}

// OwnerOf returns the node id currently assigned workerID's shard, or ""
// if no live node is assigned (can happen transiently with zero live
// nodes).
func (r *Registry) OwnerOf(workerID domain.WorkerID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assignment[HashWorkerID(workerID)]
}

// AddrOf returns the control plane gRPC address nodeID last advertised,
// or "" if nodeID is unknown. Used by a Forwarder to dial the node that
// currently owns a shard this process does not.
func (r *Registry) AddrOf(nodeID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.members[nodeID]; ok {
		return m.Addr
	}
	return ""
}

// liveNodeIDsLocked returns live node ids in sorted order, so every node
// in the cluster computes an identical assignment from identical
// membership without needing a separate consensus round.
func (r *Registry) liveNodeIDsLocked() []string {
	ids := make([]string, 0, len(r.members))
	for id, m := range r.members {
		if m.State == NodeActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// rebalanceLocked recomputes the shard->node assignment via rendezvous
// (highest-random-weight) hashing: each shard independently picks the
// live node maximizing hash(nodeID, shard). Losing or gaining one node
// only changes the shards that node wins the hash for, leaving every
// other shard's owner untouched — the minimal-movement property C7
// requires on membership change, without needing a consensus round
// since every node computes the same function from the same membership.
func (r *Registry) rebalanceLocked() {
	prev := r.assignment
	defer func() {
		if r.assignment != prev {
			metrics.Global().RecordShardRebalance()
		}
	}()

	live := r.liveNodeIDsLocked()
	if len(live) == 0 {
		for i := range r.assignment {
			r.assignment[i] = ""
		}
		return
	}
	for shard := uint32(0); shard < ShardCount; shard++ {
		var best string
		var bestScore uint32
		for _, id := range live {
			score := rendezvousScore(id, shard)
			if best == "" || score > bestScore {
				best, bestScore = id, score
			}
		}
		r.assignment[shard] = best
	}
}

func rendezvousScore(nodeID string, shard uint32) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeID))
	_, _ = h.Write([]byte{byte(shard), byte(shard >> 8), byte(shard >> 16), byte(shard >> 24)})
	return h.Sum32()
}

// Assignment returns a copy of the current shard->node assignment table.
func (r *Registry) Assignment() [ShardCount]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assignment
}
