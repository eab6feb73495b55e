package controlplane

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/golempb"
	"github.com/oriys/golem/internal/invqueue"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/template"
)

// errStreamEnded is the sentinel ConnectWorker's callback returns once it
// observes an entry that ends the worker's log — an exit, or a genuine
// (non-simulated-crash) interrupt. It is never surfaced to the client;
// translateErr below turns it into a clean stream close.
var errStreamEnded = errors.New("controlplane: worker reached a terminal state")

// accountFromMetadata reads the x-golem-account header a client sets to
// scope a request to its account, mirroring the teacher's
// x-nova-tenant metadata convention.
func accountFromMetadata(ctx context.Context) domain.AccountID {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("x-golem-account")
	if len(values) == 0 {
		return ""
	}
	return domain.AccountID(values[0])
}

// codeForAPIError maps the outer error taxonomy (§7) onto the nearest
// gRPC status code.
func codeForAPIError(e *domain.APIError) codes.Code {
	switch e.Code {
	case domain.CodeBadRequest:
		return codes.InvalidArgument
	case domain.CodeUnauthorized:
		return codes.PermissionDenied
	case domain.CodeLimitExceeded:
		return codes.ResourceExhausted
	case domain.CodeNotFound:
		return codes.NotFound
	case domain.CodeAlreadyExists:
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// translateErr maps every error this package's handlers can produce onto
// a gRPC status, so §7's taxonomy survives the RPC boundary intact
// instead of collapsing to a bare Internal.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, errStreamEnded):
		return nil
	case errors.Is(err, oplog.ErrWorkerNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, oplog.ErrWorkerExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, template.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, template.ErrParseFailed):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, invqueue.ErrWorkerTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return status.Error(codeForAPIError(apiErr), apiErr.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// logEventFromEntry projects an oplog entry onto the connect_worker wire
// event. Only EntryLog entries carry a displayable message; everything
// else is consumed for isTerminalEntry and never sent.
func logEventFromEntry(entry domain.OplogEntry) (*golempb.LogEvent, bool) {
	if entry.Kind != domain.EntryLog {
		return nil, false
	}
	var payload domain.LogPayload
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		return nil, false
	}
	return &golempb.LogEvent{Index: entry.Index, Timestamp: entry.Timestamp, Message: payload.Text}, true
}

// isTerminalEntry reports whether entry ends a connect_worker stream: an
// exit always does; an interrupt does unless it is a simulated crash
// (recoverImmediately), which only resets replay and may run again.
func isTerminalEntry(entry domain.OplogEntry) bool {
	switch entry.Kind {
	case domain.EntryExitMarker:
		return true
	case domain.EntryInterruptMarker:
		var payload domain.InterruptMarkerPayload
		if err := json.Unmarshal(entry.Payload, &payload); err != nil {
			return false
		}
		return !payload.RecoverImmediately
	default:
		return false
	}
}
