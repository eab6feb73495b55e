package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/wasmhost"
)

// Runtime hosts one worker's live execution: its state machine, its
// view of the oplog, and the capability bundle its guest export runs
// against. One Runtime exists only while a worker is Loading/Running/
// Suspended/Interrupted in the Worker Executor Node's cache (C6); it is
// discarded on eviction and rebuilt from the oplog on next admission.
type Runtime struct {
	WorkerID  domain.WorkerID
	ContentID string

	machine  *StateMachine
	log      *oplog.Oplog
	registry *wasmhost.Registry

	clock  wasmhost.Clock
	random wasmhost.Random
	kv     wasmhost.KeyValue
	http   wasmhost.HTTPClient
	blob   wasmhost.BlobStore
	rpc    wasmhost.RPCClient
}

type Deps struct {
	Clock  wasmhost.Clock
	Random wasmhost.Random
	KV     wasmhost.KeyValue
	HTTP   wasmhost.HTTPClient
	Blob   wasmhost.BlobStore
	RPC    wasmhost.RPCClient
}

func New(workerID domain.WorkerID, contentID string, log *oplog.Oplog, registry *wasmhost.Registry, deps Deps) *Runtime {
	return &Runtime{
		WorkerID:  workerID,
		ContentID: contentID,
		machine:   NewStateMachine(),
		log:       log,
		registry:  registry,
		clock:     deps.Clock,
		random:    deps.Random,
		kv:        deps.KV,
		http:      deps.HTTP,
		blob:      deps.Blob,
		rpc:       deps.RPC,
	}
}

func (r *Runtime) State() State { return r.machine.Current() }

// Load transitions Idle -> Loading, replays every historical invocation
// recorded in the oplog (re-running guest code so its capability calls
// can be satisfied from recorded EffectResult entries instead of
// re-performed), and finally transitions Loading -> Running once replay
// has caught up to the live edge of the log.
func (r *Runtime) Load(ctx context.Context) (*Interceptor, error) {
	if err := r.machine.Transition(StateLoading); err != nil {
		return nil, err
	}
	replayEnd, err := r.log.Len(ctx, r.WorkerID)
	if err != nil {
		return nil, err
	}
	ic := NewInterceptor(r.log, r.WorkerID, replayEnd)

	for {
		payload, ok, err := ic.PeekNextInvocation(ctx)
		if err != nil {
			_ = r.machine.Transition(StateFailed)
			return nil, err
		}
		if !ok {
			break
		}
		if _, err := r.runExport(ctx, ic, payload.Function, payload.Params, payload.Convention); err != nil {
			_ = r.machine.Transition(StateFailed)
			return nil, err
		}
	}

	if err := r.machine.Transition(StateRunning); err != nil {
		return nil, err
	}
	return ic, nil
}

// Invoke drives one brand-new invocation through the full pipeline:
// append the Invocation entry, run the export with replay semantics
// (which for a live invocation always executes live, since ic's replay
// position has already caught up), and return its result. It does not
// itself decide retry policy or persist the result into the
// invocation-key registry — that is C5's job, one layer up.
func (r *Runtime) Invoke(ctx context.Context, ic *Interceptor, function string, params []domain.Value, convention domain.CallingConvention, keyValue string) ([]domain.Value, error) {
	if r.machine.Current() != StateRunning {
		return nil, fmt.Errorf("runtime: invoke called while not Running (state=%s)", r.machine.Current())
	}

	if _, err := r.log.Append(ctx, r.WorkerID, domain.EntryInvocation, domain.InvocationPayload{
		KeyValue:   keyValue,
		Function:   function,
		Params:     params,
		Convention: convention,
	}); err != nil {
		return nil, err
	}

	return r.runExport(ctx, ic, function, params, convention)
}

// runExport looks up and calls one export, routing its capability calls
// through ic. Shared between Invoke (new invocations) and Load's replay
// loop (historical invocations). Under Stdio/StdioEventloop, params must
// already be the single JSON-string Value domain.EncodeStdioParam
// produces, and the export's single string result is run back through
// domain.DecodeStdioResult before it reaches the caller; under Component
// the values pass through untouched.
func (r *Runtime) runExport(ctx context.Context, ic *Interceptor, function string, params []domain.Value, convention domain.CallingConvention) ([]domain.Value, error) {
	export, err := r.registry.Lookup(r.ContentID, function)
	if err != nil {
		return nil, domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindInvalidRequest, Message: err.Error()})
	}

	stdio := convention == domain.ConventionStdio || convention == domain.ConventionStdioEventloop
	if stdio {
		if len(params) != 1 || params[0].Kind != domain.KindString {
			return nil, domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindInvalidRequest, Message: "stdio convention requires a single JSON-string parameter"})
		}
	}

	bundle := &capabilityBundle{ic: ic, ctx: ctx, clock: r.clock, random: r.random, kv: r.kv, http: r.http, blob: r.blob, rpc: r.rpc}
	invCtx := &wasmhost.InvocationContext{
		Ctx:      ctx,
		WorkerID: r.WorkerID,
		Clock:    clockAdapter{bundle},
		Random:   randomAdapter{bundle},
		KeyValue: kvAdapter{bundle},
		HTTP:     httpAdapter{bundle},
		Blob:     blobAdapter{bundle},
		RPC:      rpcAdapter{bundle},
		Stdout:   func(s string) { r.appendLog(ctx, domain.LogStdout, "", s) },
		Stderr:   func(s string) { r.appendLog(ctx, domain.LogStderr, "", s) },
	}

	results, callErr := export(invCtx, params)
	if callErr != nil {
		_ = r.machine.Transition(StateFailed)
		return nil, domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindRuntimeError, Message: callErr.Error()})
	}
	if !stdio {
		return results, nil
	}
	return r.decodeStdioResult(ctx, results)
}

// decodeStdioResult applies domain.DecodeStdioResult to an export's
// return value and re-wraps it as the single-element Value slice the
// rest of the pipeline expects, logging the dual-interpretation fallback
// to the worker's own oplog when it is taken so it stays observable
// without changing the default behavior.
func (r *Runtime) decodeStdioResult(ctx context.Context, results []domain.Value) ([]domain.Value, error) {
	if len(results) != 1 || results[0].Kind != domain.KindString {
		return nil, domain.NewWorkerError(&domain.WorkerError{Kind: domain.KindRuntimeError, Message: "stdio convention expects a single JSON-string result"})
	}
	raw, _ := results[0].AsString()
	decoded := domain.DecodeStdioResult(raw)
	if decoded.Ambiguous {
		r.appendLog(ctx, domain.LogStderr, "warn", "stdio result was not valid JSON, falling back to string literal")
	}
	return []domain.Value{{Kind: domain.KindString, Scalar: decoded.Value}}, nil
}

func (r *Runtime) appendLog(ctx context.Context, event domain.LogEventKind, level, text string) {
	_, _ = r.log.Append(ctx, r.WorkerID, domain.EntryLog, domain.LogPayload{Event: event, Level: level, Text: text})
}

// Suspend, Resume, Interrupt and Exit perform the remaining state
// transitions the executor node drives the runtime through (C6 decides
// *when*; Runtime only validates that the edge is legal and records the
// marker for replay).
func (r *Runtime) Suspend(ctx context.Context) error {
	if err := r.machine.Transition(StateSuspended); err != nil {
		return err
	}
	_, err := r.log.Append(ctx, r.WorkerID, domain.EntrySuspend, struct{}{})
	return err
}

func (r *Runtime) Resume(ctx context.Context) error {
	if err := r.machine.Transition(StateRunning); err != nil {
		return err
	}
	_, err := r.log.Append(ctx, r.WorkerID, domain.EntryResume, struct{}{})
	return err
}

// Interrupt records why a worker stopped: a genuine API-driven interrupt
// (recoverImmediately=false) transitions to Interrupted; a simulated
// crash (recoverImmediately=true) drops straight back to Idle so the next
// Load fully replays from index 0, exactly as a real process crash would.
func (r *Runtime) Interrupt(ctx context.Context, recoverImmediately bool) error {
	if _, err := r.log.Append(ctx, r.WorkerID, domain.EntryInterruptMarker, domain.InterruptMarkerPayload{RecoverImmediately: recoverImmediately}); err != nil {
		return err
	}
	if recoverImmediately {
		return r.machine.Transition(StateIdle)
	}
	return r.machine.Transition(StateInterrupted)
}

func (r *Runtime) Exit(ctx context.Context, reason string) error {
	if err := r.machine.Transition(StateExited); err != nil {
		return err
	}
	_, err := r.log.Append(ctx, r.WorkerID, domain.EntryExitMarker, domain.ExitMarkerPayload{Reason: reason})
	return err
}

type clockAdapter struct{ b *capabilityBundle }

func (c clockAdapter) Now() time.Time {
	ns, err := c.b.Now()
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

type randomAdapter struct{ b *capabilityBundle }

func (r randomAdapter) Uint64() uint64 {
	v, _ := r.b.RandomUint64()
	return v
}

type kvAdapter struct{ b *capabilityBundle }

func (k kvAdapter) Get(_ context.Context, key string) ([]byte, bool, error) { return k.b.KVGet(key) }
func (k kvAdapter) Set(_ context.Context, key string, value []byte) error  { return k.b.KVSet(key, value) }

type httpAdapter struct{ b *capabilityBundle }

func (h httpAdapter) Do(_ context.Context, method, url string, body []byte) (int, []byte, error) {
	return h.b.HTTPDo(method, url, body)
}

type blobAdapter struct{ b *capabilityBundle }

func (bl blobAdapter) Put(_ context.Context, data []byte) (string, error) { return bl.b.BlobPut(data) }
func (bl blobAdapter) Get(_ context.Context, contentID string) ([]byte, error) {
	return bl.b.BlobGet(contentID)
}

type rpcAdapter struct{ b *capabilityBundle }

func (rp rpcAdapter) Invoke(_ context.Context, worker, function string, params []byte) ([]byte, error) {
	return rp.b.RPCInvoke(worker, function, params)
}
