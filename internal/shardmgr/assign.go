package shardmgr

import (
	"hash/fnv"
	"strconv"
)

// rebalanceLocked recomputes the full shard->node assignment from
// scratch given current live membership. It must be called with r.mu
// held for writing.
//
// Assignment uses rendezvous (highest random weight) hashing: each
// shard is owned by argmax_node(hash(shard, node)) over the live set.
// This gives the minimal-movement property a simple shard%len(nodes)
// scheme lacks — removing one node only reassigns the shards *that node*
// owned (each independently recomputing its new winner among the
// remaining nodes), and adding one node only takes over its fair share
// of shards from the existing owners, instead of reshuffling the whole
// modulo base.
func (r *Registry) rebalanceLocked() {
	live := r.liveNodeIDsLocked()
	if len(live) == 0 {
		for shard := range r.assignment {
			r.assignment[shard] = ""
		}
		return
	}
	for shard := 0; shard < ShardCount; shard++ {
		r.assignment[shard] = rendezvousWinner(shard, live)
	}
}

func rendezvousWinner(shard int, nodes []string) string {
	var winner string
	var best uint64
	for _, node := range nodes {
		w := rendezvousWeight(shard, node)
		if winner == "" || w > best {
			best = w
			winner = node
		}
	}
	return winner
}

func rendezvousWeight(shard int, node string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.Itoa(shard)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(node))
	return h.Sum64()
}

// Assignment returns a snapshot of the full shard->node map, keyed by
// shard id, for diagnostics and for the control plane's cluster-status
// surface.
func (r *Registry) Assignment() map[uint32]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint32]string, ShardCount)
	for shard, node := range r.assignment {
		out[uint32(shard)] = node
	}
	return out
}
