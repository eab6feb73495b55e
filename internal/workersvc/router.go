// Package workersvc implements the Worker Service / Router (C8): a
// stateless front door that computes a worker's owning shard, serves the
// invocation locally if this node owns it, or forwards to the owner
// otherwise, retrying a bounded number of times if ownership moved
// between the client's view and the server's. Grounded on
// internal/cluster.Router's registry+scheduler+proxy composition and its
// "pick remote node, forward, else handle locally" shape.
package workersvc

import (
	"context"

	"github.com/oriys/golem/internal/domain"
)

// ShardLookup resolves worker ownership without this package depending on
// shardmgr's concrete type, the same decoupling internal/workerexec uses
// for Ownership.
type ShardLookup interface {
	Owns(ctx context.Context, workerID domain.WorkerID) (bool, error)
	OwnerOf(workerID domain.WorkerID) string
}

// Router decides, for one worker, whether this node should execute the
// request locally or forward it to the node that currently owns the
// worker's shard.
type Router struct {
	shards      ShardLookup
	localNodeID string
}

func NewRouter(shards ShardLookup, localNodeID string) *Router {
	return &Router{shards: shards, localNodeID: localNodeID}
}

// Resolve returns the id of the node that should handle workerID, and
// whether that is this node.
func (r *Router) Resolve(ctx context.Context, workerID domain.WorkerID) (nodeID string, isLocal bool, err error) {
	owns, err := r.shards.Owns(ctx, workerID)
	if err != nil {
		return "", false, err
	}
	if owns {
		return r.localNodeID, true, nil
	}
	return r.shards.OwnerOf(workerID), false, nil
}
