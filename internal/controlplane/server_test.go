package controlplane

import (
	"context"
	"testing"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/golempb"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/kvstore"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/runtime"
	"github.com/oriys/golem/internal/shardmgr"
	"github.com/oriys/golem/internal/template"
	"github.com/oriys/golem/internal/wasmhost"
	"github.com/oriys/golem/internal/workerexec"
	"github.com/oriys/golem/internal/workersvc"
)

var validWasm = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

type noopForwarder struct{}

func (noopForwarder) ForwardInvoke(context.Context, string, domain.WorkerID, invqueue.Request) (domain.InvocationKey, error) {
	return domain.InvocationKey{}, nil
}
func (noopForwarder) ForwardStream(context.Context, string, domain.WorkerID, uint64, func(domain.OplogEntry, error) error) error {
	return nil
}
func (noopForwarder) ForwardInterrupt(context.Context, string, domain.WorkerID, bool) error {
	return nil
}
func (noopForwarder) ForwardResume(context.Context, string, domain.WorkerID) error { return nil }

func newTestServer(t *testing.T, exportName string, export wasmhost.ComponentExport) (*Server, *domain.Template) {
	t.Helper()

	templates := template.NewMemoryStore(template.BinaryParser{})
	tpl, err := templates.Put(context.Background(), "tpl-1", "acct-1", "counter", validWasm)
	if err != nil {
		t.Fatalf("put template: %v", err)
	}

	log := oplog.New(kvstore.NewMemory())
	registry := wasmhost.NewRegistry()
	registry.Register(tpl.ContentID, exportName, export)

	shards := shardmgr.NewRegistry(nil, shardmgr.DefaultConfig("node-1"))
	node := workerexec.New(4, shards, log, registry, templates, func(domain.WorkerID) runtime.Deps { return runtime.Deps{} })
	queue := invqueue.NewMemory()
	dispatcher := workerexec.NewDispatcher(node, queue)

	router := workersvc.NewRouter(shards, "node-1")
	svc := workersvc.NewService(router, dispatcher, noopForwarder{}, 3)

	return New(templates, log, queue, svc, Config{}), tpl
}

func TestCreateWorkerThenInvokeAndAwait(t *testing.T) {
	srv, tpl := newTestServer(t, "echo", func(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
		return params, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	created, err := srv.CreateWorker(ctx, &golempb.CreateWorkerRequest{TemplateID: tpl.ID, Name: "w1"})
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if created.WorkerID.Name != "w1" || created.TemplateVersion != tpl.Version {
		t.Fatalf("unexpected create response: %+v", created)
	}

	meta, err := srv.GetWorkerMetadata(ctx, &golempb.GetWorkerMetadataRequest{WorkerID: created.WorkerID})
	if err != nil {
		t.Fatalf("get worker metadata: %v", err)
	}
	if meta.Status.Status != domain.StatusRunning {
		t.Fatalf("expected Running, got %s", meta.Status.Status)
	}

	keyResp, err := srv.GetInvocationKey(ctx, &golempb.GetInvocationKeyRequest{WorkerID: created.WorkerID})
	if err != nil {
		t.Fatalf("get invocation key: %v", err)
	}
	if keyResp.KeyValue == "" {
		t.Fatalf("expected a non-empty invocation key")
	}

	resp, err := srv.InvokeAndAwait(ctx, &golempb.InvokeAndAwaitRequest{
		WorkerID: created.WorkerID,
		KeyValue: keyResp.KeyValue,
		Function: "echo",
		Params:   []domain.Value{domain.S32(42)},
	})
	if err != nil {
		t.Fatalf("invoke and await: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].Kind != domain.KindS32 {
		t.Fatalf("unexpected result %+v", resp.Result)
	}
}

func TestCreateWorkerDuplicateNameIsAlreadyExists(t *testing.T) {
	srv, tpl := newTestServer(t, "echo", func(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
		return params, nil
	})
	ctx := context.Background()

	if _, err := srv.CreateWorker(ctx, &golempb.CreateWorkerRequest{TemplateID: tpl.ID, Name: "dup"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := srv.CreateWorker(ctx, &golempb.CreateWorkerRequest{TemplateID: tpl.ID, Name: "dup"}); err == nil {
		t.Fatalf("expected an error on duplicate worker name")
	}
}

func TestDeleteWorkerThenGetWorkerMetadataNotFound(t *testing.T) {
	srv, tpl := newTestServer(t, "echo", func(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
		return params, nil
	})
	ctx := context.Background()

	created, err := srv.CreateWorker(ctx, &golempb.CreateWorkerRequest{TemplateID: tpl.ID, Name: "w1"})
	if err != nil {
		t.Fatalf("create worker: %v", err)
	}
	if _, err := srv.DeleteWorker(ctx, &golempb.DeleteWorkerRequest{WorkerID: created.WorkerID}); err != nil {
		t.Fatalf("delete worker: %v", err)
	}
	if _, err := srv.GetWorkerMetadata(ctx, &golempb.GetWorkerMetadataRequest{WorkerID: created.WorkerID}); err == nil {
		t.Fatalf("expected an error fetching a deleted worker's metadata")
	}
}

func TestPutAndGetLatestTemplateRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, "echo", func(ic *wasmhost.InvocationContext, params []domain.Value) ([]domain.Value, error) {
		return params, nil
	})
	ctx := context.Background()

	put, err := srv.PutTemplate(ctx, &golempb.PutTemplateRequest{TemplateID: "tpl-2", Name: "other", WasmBytes: validWasm})
	if err != nil {
		t.Fatalf("put template: %v", err)
	}

	got, err := srv.GetLatestTemplate(ctx, &golempb.GetLatestTemplateRequest{TemplateID: "tpl-2"})
	if err != nil {
		t.Fatalf("get latest template: %v", err)
	}
	if got.Template.ContentID != put.Template.ContentID {
		t.Fatalf("expected matching content id, got %s vs %s", got.Template.ContentID, put.Template.ContentID)
	}
}
