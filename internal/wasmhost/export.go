// Package wasmhost is the seam where a real WASM component-model host
// would execute an uploaded template's exports. This exercise registers
// Go closures by (template content hash, function name) instead of
// loading an actual wasmtime/wazero module, so the worker runtime's
// replay/retry/capability-interception semantics can be fully exercised
// without embedding a component-model engine. Grounded on the registry
// shape of internal/wasm.Manager, narrowed to the closure-lookup seam
// described in SPEC_FULL.md §4.4.
package wasmhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/oriys/golem/internal/domain"
)

// InvocationContext is passed to every ComponentExport; it is the guest's
// view of the capabilities a worker runtime intercepts for replay.
type InvocationContext struct {
	Ctx      context.Context
	WorkerID domain.WorkerID
	Clock    Clock
	Random   Random
	KeyValue KeyValue
	HTTP     HTTPClient
	Blob     BlobStore
	RPC      RPCClient
	Stdout   func(string)
	Stderr   func(string)
}

// ComponentExport is the signature every registered template function
// must implement.
type ComponentExport func(ic *InvocationContext, params []domain.Value) ([]domain.Value, error)

// Registry maps (content hash, function name) to a ComponentExport. One
// Registry is shared process-wide; exports are bound with Register,
// keyed by the content hash assigned by C1, so two templates with
// identical bytes share one registration. The template upload path does
// not call Register itself.
type Registry struct {
	mu      sync.RWMutex
	exports map[string]map[string]ComponentExport
}

func NewRegistry() *Registry {
	return &Registry{exports: make(map[string]map[string]ComponentExport)}
}

// Register binds fn as contentID's export named name.
func (r *Registry) Register(contentID, name string, fn ComponentExport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exports[contentID] == nil {
		r.exports[contentID] = make(map[string]ComponentExport)
	}
	r.exports[contentID][name] = fn
}

// Lookup returns the export registered for (contentID, name).
func (r *Registry) Lookup(contentID, name string) (ComponentExport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName, ok := r.exports[contentID]
	if !ok {
		return nil, fmt.Errorf("wasmhost: no exports registered for content %s", contentID)
	}
	fn, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("wasmhost: content %s has no export %q", contentID, name)
	}
	return fn, nil
}
