// Package controlplane implements C9, the Control Plane API: the
// create_worker/delete_worker/get_worker_metadata/get_invocation_key/
// invoke/invoke_and_await/interrupt_worker/resume_worker/connect_worker
// surface, plus the template service, exposed over gRPC with
// internal/rpccodec's JSON codec standing in for protoc-generated
// messages. Grounded on internal/grpc.Server's shape: a thin struct
// wrapping the domain services, metadata-derived request scoping applied
// at the top of every handler, and a Start/Stop pair around a
// *grpc.Server.
package controlplane

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/golempb"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/logging"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/rpccodec"
	"github.com/oriys/golem/internal/template"
	"github.com/oriys/golem/internal/workerexec"
	"github.com/oriys/golem/internal/workersvc"
)

// Server implements golempb.WorkerServiceServer and
// golempb.TemplateServiceServer against the component stack beneath it.
type Server struct {
	templates template.Store
	log       *oplog.Oplog
	queue     invqueue.Queue
	workers   *workersvc.Service

	streamBufferSize   int
	streamPollInterval time.Duration

	grpcServer *grpc.Server
}

// Config carries the tunables Options a real deployment would source
// from internal/config; New applies defaults matching
// internal/workerexec.StreamLog's own.
type Config struct {
	StreamBufferSize   int
	StreamPollInterval time.Duration
}

func New(templates template.Store, log *oplog.Oplog, queue invqueue.Queue, workers *workersvc.Service, cfg Config) *Server {
	if cfg.StreamBufferSize <= 0 {
		cfg.StreamBufferSize = 64
	}
	if cfg.StreamPollInterval <= 0 {
		cfg.StreamPollInterval = 200 * time.Millisecond
	}
	return &Server{
		templates:          templates,
		log:                log,
		queue:              queue,
		workers:            workers,
		streamBufferSize:   cfg.StreamBufferSize,
		streamPollInterval: cfg.StreamPollInterval,
	}
}

// Start registers both services on a fresh *grpc.Server bound to addr,
// using internal/rpccodec's JSON codec in place of the default proto
// codec, and serves until Stop is called.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("controlplane: listen: %w", err)
	}

	s.grpcServer = grpc.NewServer(grpc.ForceServerCodec(rpccodec.Codec()))
	golempb.RegisterWorkerServiceServer(s.grpcServer, s)
	golempb.RegisterTemplateServiceServer(s.grpcServer, s)

	logging.Op().Info("control plane listening", "addr", addr)
	return s.grpcServer.Serve(lis)
}

func (s *Server) Stop() {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
}

func (s *Server) contentIDFor(ctx context.Context, workerID domain.WorkerID, rec domain.WorkerStatusRecord) (string, error) {
	tpl, err := s.templates.Get(ctx, workerID.TemplateID, rec.TemplateVersion)
	if err != nil {
		return "", domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindTemplateDownloadFailed, Message: err.Error()})
	}
	return tpl.ContentID, nil
}

func (s *Server) CreateWorker(ctx context.Context, req *golempb.CreateWorkerRequest) (*golempb.CreateWorkerResponse, error) {
	if req.TemplateID == "" || req.Name == "" {
		return nil, translateErr(domain.NewBadRequest("template_id and name are required"))
	}
	account := req.Account
	if account == "" {
		account = accountFromMetadata(ctx)
	}

	tpl, err := s.templates.GetLatest(ctx, req.TemplateID)
	if err != nil {
		return nil, translateErr(domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindGetLatestVersionOfTemplateFailed, Message: err.Error()}))
	}

	workerID := domain.WorkerID{TemplateID: req.TemplateID, Name: req.Name}
	rec := domain.WorkerStatusRecord{
		WorkerID:        workerID,
		Account:         account,
		TemplateVersion: tpl.Version,
		Args:            req.Args,
		Env:             req.Env,
		Status:          domain.StatusRunning,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.log.CreateStatus(ctx, rec); err != nil {
		if err == oplog.ErrWorkerExists {
			return nil, translateErr(domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindWorkerAlreadyExists}))
		}
		return nil, translateErr(domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindWorkerCreationFailed, Message: err.Error()}))
	}

	return &golempb.CreateWorkerResponse{WorkerID: workerID, TemplateVersion: tpl.Version}, nil
}

func (s *Server) DeleteWorker(ctx context.Context, req *golempb.DeleteWorkerRequest) (*golempb.Empty, error) {
	if err := s.log.DeleteWorker(ctx, req.WorkerID); err != nil {
		return nil, translateErr(err)
	}
	return &golempb.Empty{}, nil
}

func (s *Server) GetWorkerMetadata(ctx context.Context, req *golempb.GetWorkerMetadataRequest) (*golempb.GetWorkerMetadataResponse, error) {
	rec, err := s.log.GetStatus(ctx, req.WorkerID)
	if err != nil {
		return nil, translateErr(err)
	}
	return &golempb.GetWorkerMetadataResponse{Status: rec}, nil
}

// GetInvocationKey mints a fresh key and registers it Pending, so a
// client that disconnects before invoke_and_await responds can
// reconnect and resubmit with the same key to retrieve the same result
// instead of risking a duplicate execution.
func (s *Server) GetInvocationKey(ctx context.Context, req *golempb.GetInvocationKeyRequest) (*golempb.GetInvocationKeyResponse, error) {
	if _, err := s.log.GetStatus(ctx, req.WorkerID); err != nil {
		return nil, translateErr(err)
	}
	keyValue := uuid.New().String()
	if err := s.queue.Pending(ctx, req.WorkerID, keyValue); err != nil {
		return nil, translateErr(err)
	}
	return &golempb.GetInvocationKeyResponse{KeyValue: keyValue}, nil
}

// Invoke is fire-and-forget: it validates the worker and enqueues the
// call, but does not wait for it, so it hands the invocation its own
// background context rather than the RPC's — the invocation must keep
// running after this call returns, exactly as invoke_and_await's own
// cancellation semantics already require of a client disconnect.
func (s *Server) Invoke(ctx context.Context, req *golempb.InvokeRequest) (*golempb.Empty, error) {
	rec, err := s.log.GetStatus(ctx, req.WorkerID)
	if err != nil {
		return nil, translateErr(err)
	}
	contentID, err := s.contentIDFor(ctx, req.WorkerID, rec)
	if err != nil {
		return nil, translateErr(err)
	}

	invReq := invqueue.Request{
		KeyValue:   uuid.New().String(),
		Function:   req.Function,
		Params:     req.Params,
		Convention: req.Convention,
		ContentID:  contentID,
	}
	go func() {
		_, _ = s.workers.InvokeAndAwait(context.Background(), req.WorkerID, rec.Status, invReq)
	}()
	return &golempb.Empty{}, nil
}

func (s *Server) InvokeAndAwait(ctx context.Context, req *golempb.InvokeAndAwaitRequest) (*golempb.InvokeAndAwaitResponse, error) {
	rec, err := s.log.GetStatus(ctx, req.WorkerID)
	if err != nil {
		return nil, translateErr(err)
	}
	contentID, err := s.contentIDFor(ctx, req.WorkerID, rec)
	if err != nil {
		return nil, translateErr(err)
	}

	keyValue := req.KeyValue
	if keyValue == "" {
		keyValue = uuid.New().String()
	}
	key, err := s.workers.InvokeAndAwait(ctx, req.WorkerID, rec.Status, invqueue.Request{
		KeyValue:   keyValue,
		Function:   req.Function,
		Params:     req.Params,
		Convention: req.Convention,
		ContentID:  contentID,
	})
	if err != nil {
		return nil, translateErr(err)
	}
	if key.State == domain.KeyFailed {
		return nil, translateErr(key.FailError.ToAPIError())
	}
	return &golempb.InvokeAndAwaitResponse{Result: key.Result}, nil
}

func (s *Server) InterruptWorker(ctx context.Context, req *golempb.InterruptWorkerRequest) (*golempb.Empty, error) {
	if err := s.workers.InterruptWorker(ctx, req.WorkerID, req.RecoverImmediately); err != nil {
		return nil, translateErr(err)
	}
	return &golempb.Empty{}, nil
}

func (s *Server) ResumeWorker(ctx context.Context, req *golempb.ResumeWorkerRequest) (*golempb.Empty, error) {
	if err := s.workers.ResumeWorker(ctx, req.WorkerID); err != nil {
		return nil, translateErr(err)
	}
	return &golempb.Empty{}, nil
}

func (s *Server) ConnectWorker(req *golempb.ConnectWorkerRequest, stream golempb.WorkerService_ConnectWorkerServer) error {
	ctx := stream.Context()

	streamLocal := func(ctx context.Context, workerID domain.WorkerID, fromIdx uint64, callback func(domain.OplogEntry, error) error) error {
		return workerexec.StreamLog(ctx, s.log, workerID, fromIdx, s.streamBufferSize, s.streamPollInterval, callback)
	}

	callback := func(entry domain.OplogEntry, err error) error {
		if err != nil {
			return stream.Send(&golempb.LogEvent{Index: entry.Index, Timestamp: entry.Timestamp, Overflow: true})
		}
		if ev, ok := logEventFromEntry(entry); ok {
			if sendErr := stream.Send(ev); sendErr != nil {
				return sendErr
			}
		}
		if isTerminalEntry(entry) {
			return errStreamEnded
		}
		return nil
	}

	return translateErr(s.workers.ConnectWorker(ctx, req.WorkerID, req.FromIndex, streamLocal, callback))
}
