package domain

import "time"

// WorkerStatus is the mutable lifecycle state of a worker. It is a
// coarser projection than the in-process runtime state machine in
// internal/runtime: Suspended/Interrupted/Failed/Exited are all
// "not currently running" from the control plane's point of view.
type WorkerStatus string

const (
	StatusRunning     WorkerStatus = "Running"
	StatusSuspended   WorkerStatus = "Suspended"
	StatusInterrupted WorkerStatus = "Interrupted"
	StatusFailed      WorkerStatus = "Failed"
	StatusExited      WorkerStatus = "Exited"
)

// RetryConfig overrides the default retry policy for a worker's failed
// invocations. Zero value means "use the executor default".
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts,omitempty"`
	MinBackoff  time.Duration `json:"min_backoff,omitempty"`
	MaxBackoff  time.Duration `json:"max_backoff,omitempty"`
	Multiplier  float64       `json:"multiplier,omitempty"`
}

// DeletedRegion marks an oplog index range as logically removed from
// replay (e.g. after a forced history rewrite), without mutating the
// underlying log. Recorded inclusive of From, exclusive of To.
type DeletedRegion struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// WorkerStatusRecord is the persisted projection of a worker's status,
// keyed by WorkerID under status:<worker_id>. CreatedAt is set once at
// creation and returned verbatim by every later read — never recomputed
// as "now" (see DESIGN.md Open Question 1).
type WorkerStatusRecord struct {
	WorkerID              WorkerID        `json:"worker_id"`
	Account               AccountID       `json:"account"`
	TemplateVersion       int             `json:"template_version"`
	Args                  []string        `json:"args"`
	Env                   map[string]string `json:"env"`
	Status                WorkerStatus    `json:"status"`
	LastOplogIndex        uint64          `json:"last_oplog_index"`
	OverriddenRetryConfig *RetryConfig    `json:"overridden_retry_config,omitempty"`
	DeletedRegions        []DeletedRegion `json:"deleted_regions,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	Deleted               bool            `json:"deleted,omitempty"`
}

// InDeletedRegion reports whether oplog index idx falls inside any
// recorded deleted region, meaning replay must skip it.
func (w *WorkerStatusRecord) InDeletedRegion(idx uint64) bool {
	for _, r := range w.DeletedRegions {
		if idx >= r.From && idx < r.To {
			return true
		}
	}
	return false
}

// InvocationKeyState is the lifecycle of one invocation key, per C5.
type InvocationKeyState string

const (
	KeyPending   InvocationKeyState = "Pending"
	KeyCompleted InvocationKeyState = "Completed"
	KeyFailed    InvocationKeyState = "Failed"
)

// InvocationKey is the idempotency token used by invoke_and_await to
// collapse repeated calls onto a single in-flight or completed result.
type InvocationKey struct {
	WorkerID  WorkerID             `json:"worker_id"`
	KeyValue  string               `json:"key_value"`
	State     InvocationKeyState   `json:"state"`
	Result    []Value              `json:"result,omitempty"`
	FailError *SerializedAPIError  `json:"fail_error,omitempty"`
}

// SerializedAPIError is the JSON-stable projection of an APIError, used
// wherever an error needs to survive a round trip through the KV store
// or oplog instead of living only in memory.
type SerializedAPIError struct {
	Code         ErrorCode        `json:"code"`
	Message      string           `json:"message"`
	WorkerKind   WorkerErrorKind  `json:"worker_kind,omitempty"`
	RecoverImmediately bool       `json:"recover_immediately,omitempty"`
}

func SerializeAPIError(err *APIError) *SerializedAPIError {
	if err == nil {
		return nil
	}
	s := &SerializedAPIError{Code: err.Code, Message: err.Message}
	if err.Worker != nil {
		// Keep the WorkerError's own detail, not the rendered envelope
		// message, so ToAPIError does not render the kind's prefix twice.
		s.Message = err.Worker.Message
		s.WorkerKind = err.Worker.Kind
		s.RecoverImmediately = err.Worker.RecoverImmediately
	}
	return s
}

func (s *SerializedAPIError) ToAPIError() *APIError {
	if s == nil {
		return nil
	}
	if s.WorkerKind != "" {
		return NewWorkerError(&WorkerError{Kind: s.WorkerKind, Message: s.Message, RecoverImmediately: s.RecoverImmediately})
	}
	return &APIError{Code: s.Code, Message: s.Message}
}
