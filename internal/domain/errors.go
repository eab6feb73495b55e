package domain

import "fmt"

// ErrorCode is the outer error taxonomy every control-plane RPC envelope
// resolves to on failure. Exactly one of these is ever set on a response;
// InternalError additionally carries a WorkerError describing the cause.
type ErrorCode string

const (
	CodeBadRequest    ErrorCode = "BadRequest"
	CodeUnauthorized  ErrorCode = "Unauthorized"
	CodeLimitExceeded ErrorCode = "LimitExceeded"
	CodeNotFound      ErrorCode = "NotFound"
	CodeAlreadyExists ErrorCode = "AlreadyExists"
	CodeInternalError ErrorCode = "InternalError"
)

// WorkerErrorKind enumerates the WorkerExecutionError variants carried
// inside an InternalError envelope.
type WorkerErrorKind string

const (
	KindInvalidRequest                    WorkerErrorKind = "InvalidRequest"
	KindWorkerAlreadyExists                WorkerErrorKind = "WorkerAlreadyExists"
	KindWorkerCreationFailed                WorkerErrorKind = "WorkerCreationFailed"
	KindFailedToResumeWorker                WorkerErrorKind = "FailedToResumeWorker"
	KindTemplateDownloadFailed              WorkerErrorKind = "TemplateDownloadFailed"
	KindTemplateParseFailed                 WorkerErrorKind = "TemplateParseFailed"
	KindGetLatestVersionOfTemplateFailed    WorkerErrorKind = "GetLatestVersionOfTemplateFailed"
	KindPromiseNotFound                     WorkerErrorKind = "PromiseNotFound"
	KindPromiseDropped                      WorkerErrorKind = "PromiseDropped"
	KindPromiseAlreadyCompleted             WorkerErrorKind = "PromiseAlreadyCompleted"
	KindInterrupted                         WorkerErrorKind = "Interrupted"
	KindParamTypeMismatch                   WorkerErrorKind = "ParamTypeMismatch"
	KindNoValueInMessage                    WorkerErrorKind = "NoValueInMessage"
	KindValueMismatch                       WorkerErrorKind = "ValueMismatch"
	KindUnexpectedOplogEntry                WorkerErrorKind = "UnexpectedOplogEntry"
	KindRuntimeError                        WorkerErrorKind = "RuntimeError"
	KindInvalidShardId                      WorkerErrorKind = "InvalidShardId"
	KindPreviousInvocationFailed             WorkerErrorKind = "PreviousInvocationFailed"
	KindPreviousInvocationExited             WorkerErrorKind = "PreviousInvocationExited"
	KindInvalidAccount                      WorkerErrorKind = "InvalidAccount"
	KindWorkerNotFound                      WorkerErrorKind = "WorkerNotFound"
	KindUnknown                             WorkerErrorKind = "Unknown"
)

// WorkerError is the concrete WorkerExecutionError payload. Only the
// fields relevant to Kind are populated; the rest are zero.
type WorkerError struct {
	Kind WorkerErrorKind

	// Message carries free-form detail for kinds that don't have a fixed
	// display string (InvalidRequest, WorkerCreationFailed, RuntimeError, ...).
	Message string

	// RecoverImmediately distinguishes Interrupted's two display strings:
	// true  -> "Simulated crash"
	// false -> "Interrupted via the Golem API"
	RecoverImmediately bool

	// UnexpectedOplogEntry detail.
	ExpectedEntry string
	GotEntry      string

	// InvalidShardId detail.
	ShardID       uint32
	KnownShardIDs []uint32
}

// Error renders the exact display string the control-plane surfaces to
// callers. The Interrupted variant's two forms are load-bearing: tests
// assert on them verbatim.
func (e *WorkerError) Error() string {
	switch e.Kind {
	case KindInvalidRequest:
		return "Invalid request: " + e.Message
	case KindWorkerAlreadyExists:
		return "Worker already exists"
	case KindWorkerCreationFailed:
		return "Failed to create worker: " + e.Message
	case KindFailedToResumeWorker:
		return "Failed to resume worker: " + e.Message
	case KindTemplateDownloadFailed:
		return "Failed to download template: " + e.Message
	case KindTemplateParseFailed:
		return "Failed to parse template: " + e.Message
	case KindGetLatestVersionOfTemplateFailed:
		return "Failed to get latest version of template: " + e.Message
	case KindPromiseNotFound:
		return "Promise not found"
	case KindPromiseDropped:
		return "Promise dropped"
	case KindPromiseAlreadyCompleted:
		return "Promise already completed"
	case KindInterrupted:
		if e.RecoverImmediately {
			return "Simulated crash"
		}
		return "Interrupted via the Golem API"
	case KindParamTypeMismatch:
		return "Parameter type mismatch"
	case KindNoValueInMessage:
		return "No value in message"
	case KindValueMismatch:
		return "Value mismatch: " + e.Message
	case KindUnexpectedOplogEntry:
		return fmt.Sprintf("Unexpected oplog entry: expected %s, got %s", e.ExpectedEntry, e.GotEntry)
	case KindRuntimeError:
		return "Runtime error: " + e.Message
	case KindInvalidShardId:
		return fmt.Sprintf("Invalid shard id: %d (known: %v)", e.ShardID, e.KnownShardIDs)
	case KindPreviousInvocationFailed:
		return "The previously invoked function failed"
	case KindPreviousInvocationExited:
		return "The previously invoked function exited"
	case KindInvalidAccount:
		return "Invalid account"
	case KindWorkerNotFound:
		return "Worker not found"
	default:
		return "Unknown error"
	}
}

// APIError is the outer envelope error every control-plane RPC returns on
// failure. Worker is non-nil iff Code == CodeInternalError.
type APIError struct {
	Code    ErrorCode
	Message string
	Worker  *WorkerError
}

func (e *APIError) Error() string {
	if e.Worker != nil {
		return e.Worker.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	if e.Worker != nil {
		return e.Worker
	}
	return nil
}

func NewBadRequest(msg string) *APIError    { return &APIError{Code: CodeBadRequest, Message: msg} }
func NewUnauthorized(msg string) *APIError  { return &APIError{Code: CodeUnauthorized, Message: msg} }
func NewLimitExceeded(msg string) *APIError { return &APIError{Code: CodeLimitExceeded, Message: msg} }
func NewNotFound(msg string) *APIError      { return &APIError{Code: CodeNotFound, Message: msg} }
func NewAlreadyExists(msg string) *APIError { return &APIError{Code: CodeAlreadyExists, Message: msg} }

// NewWorkerError wraps a WorkerError as an InternalError envelope.
func NewWorkerError(we *WorkerError) *APIError {
	return &APIError{Code: CodeInternalError, Message: we.Error(), Worker: we}
}

// InvalidShardId is never surfaced to end users; the router catches it,
// refreshes its cached shard map, and retries. It is still a first-class
// WorkerError so internal plumbing can match on it with errors.As.
func InvalidShardId(shardID uint32, known []uint32) *APIError {
	return NewWorkerError(&WorkerError{Kind: KindInvalidShardId, ShardID: shardID, KnownShardIDs: known})
}

func Interrupted(recoverImmediately bool) *APIError {
	return NewWorkerError(&WorkerError{Kind: KindInterrupted, RecoverImmediately: recoverImmediately})
}

func UnexpectedOplogEntry(expected, got string) *APIError {
	return NewWorkerError(&WorkerError{Kind: KindUnexpectedOplogEntry, ExpectedEntry: expected, GotEntry: got})
}
