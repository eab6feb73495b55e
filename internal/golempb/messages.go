// Package golempb defines the wire messages and gRPC service surface
// for Golem's control plane (C9). In place of protoc-generated .pb.go
// types it uses plain Go structs with json tags, marshaled by
// internal/rpccodec's JSON codec instead of the default proto codec —
// see that package's doc comment for why.
package golempb

import (
	"time"

	"github.com/oriys/golem/internal/domain"
)

// Empty is the payload for RPCs whose only meaningful outcome is
// success-or-error (delete_worker, invoke, interrupt_worker, ...).
type Empty struct{}

type CreateWorkerRequest struct {
	Account    domain.AccountID `json:"account"`
	TemplateID domain.TemplateID `json:"template_id"`
	Name       string            `json:"name"`
	Args       []string          `json:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

type CreateWorkerResponse struct {
	WorkerID        domain.WorkerID `json:"worker_id"`
	TemplateVersion int             `json:"template_version"`
}

type DeleteWorkerRequest struct {
	WorkerID domain.WorkerID `json:"worker_id"`
}

type GetWorkerMetadataRequest struct {
	WorkerID domain.WorkerID `json:"worker_id"`
}

type GetWorkerMetadataResponse struct {
	Status domain.WorkerStatusRecord `json:"status"`
}

type GetInvocationKeyRequest struct {
	WorkerID domain.WorkerID `json:"worker_id"`
}

type GetInvocationKeyResponse struct {
	KeyValue string `json:"key_value"`
}

type InvokeRequest struct {
	WorkerID   domain.WorkerID          `json:"worker_id"`
	Function   string                   `json:"function"`
	Params     []domain.Value           `json:"params,omitempty"`
	Convention domain.CallingConvention `json:"calling_convention,omitempty"`
}

type InvokeAndAwaitRequest struct {
	WorkerID   domain.WorkerID          `json:"worker_id"`
	KeyValue   string                   `json:"key_value"`
	Function   string                   `json:"function"`
	Params     []domain.Value           `json:"params,omitempty"`
	Convention domain.CallingConvention `json:"calling_convention,omitempty"`
}

type InvokeAndAwaitResponse struct {
	Result []domain.Value `json:"result,omitempty"`
}

type InterruptWorkerRequest struct {
	WorkerID           domain.WorkerID `json:"worker_id"`
	RecoverImmediately bool            `json:"recover_immediately"`
}

type ResumeWorkerRequest struct {
	WorkerID domain.WorkerID `json:"worker_id"`
}

type ConnectWorkerRequest struct {
	WorkerID  domain.WorkerID `json:"worker_id"`
	FromIndex uint64          `json:"from_index,omitempty"`
}

// LogEvent is one entry of the connect_worker server stream. Overflow
// marks a synthesized notice standing in for a run of entries the node
// dropped because the client fell behind its high-water mark — see
// internal/workerexec.StreamLog.
type LogEvent struct {
	Index     uint64    `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Overflow  bool      `json:"overflow,omitempty"`
}

type PutTemplateRequest struct {
	Account    domain.AccountID  `json:"account"`
	TemplateID domain.TemplateID `json:"template_id"`
	Name       string            `json:"name"`
	WasmBytes  []byte            `json:"wasm_bytes"`
}

type PutTemplateResponse struct {
	Template domain.Template `json:"template"`
}

type GetTemplateRequest struct {
	TemplateID domain.TemplateID `json:"template_id"`
	Version    int               `json:"version"`
}

type GetTemplateResponse struct {
	Template domain.Template `json:"template"`
}

type GetLatestTemplateRequest struct {
	TemplateID domain.TemplateID `json:"template_id"`
}

type GetLatestTemplateResponse struct {
	Template domain.Template `json:"template"`
}

type FindTemplatesRequest struct {
	Account    domain.AccountID `json:"account"`
	NameFilter string           `json:"name_filter,omitempty"`
}

type FindTemplatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

type GetTemplateMetadataRequest struct {
	TemplateID domain.TemplateID `json:"template_id"`
}

type GetTemplateMetadataResponse struct {
	Versions []domain.Template `json:"versions"`
}
