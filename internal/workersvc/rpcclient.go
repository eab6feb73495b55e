package workersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/template"
)

// RPCClient implements wasmhost.RPCClient by routing a worker-to-worker
// call back through this node's own Service, so an in-guest invocation
// is dispatched, retried on a shard move, and durably queued exactly
// like an external invoke_and_await call.
//
// Service is wired in after construction via Bind: a Node's
// DepsFactory must be supplied before the Service that depends on that
// Node's Dispatcher exists, so RPCClient starts unbound and is bound
// once the rest of the stack is assembled.
type RPCClient struct {
	templates template.Store
	log       *oplog.Oplog
	service   *Service
}

func NewRPCClient(templates template.Store, log *oplog.Oplog) *RPCClient {
	return &RPCClient{templates: templates, log: log}
}

// Bind attaches the Service this client dispatches through. Must be
// called before the first Invoke.
func (c *RPCClient) Bind(service *Service) { c.service = service }

func (c *RPCClient) Invoke(ctx context.Context, worker string, function string, params []byte) ([]byte, error) {
	if c.service == nil {
		return nil, fmt.Errorf("workersvc: rpc client invoked before Bind")
	}
	templateID, name, ok := strings.Cut(worker, "/")
	if !ok {
		return nil, fmt.Errorf("workersvc: malformed worker id %q, want template_id/name", worker)
	}
	workerID := domain.WorkerID{TemplateID: domain.TemplateID(templateID), Name: name}

	rec, err := c.log.GetStatus(ctx, workerID)
	if err != nil {
		return nil, err
	}
	tpl, err := c.templates.Get(ctx, workerID.TemplateID, rec.TemplateVersion)
	if err != nil {
		return nil, err
	}

	var args []domain.Value
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, fmt.Errorf("workersvc: decode rpc params: %w", err)
		}
	}

	key, err := c.service.InvokeAndAwait(ctx, workerID, rec.Status, invqueue.Request{
		KeyValue:  uuid.New().String(),
		Function:  function,
		Params:    args,
		ContentID: tpl.ContentID,
	})
	if err != nil {
		return nil, err
	}
	if key.State == domain.KeyFailed {
		return nil, key.FailError.ToAPIError()
	}
	return json.Marshal(key.Result)
}
