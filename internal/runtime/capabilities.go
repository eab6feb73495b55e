package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/oplog"
	"github.com/oriys/golem/internal/wasmhost"
)

// Interceptor is the single choke point every host capability call goes
// through. It implements the central replay invariant: during recovery,
// a side-effecting call first checks for a matching EffectResult at the
// current replay index and returns the recorded result instead of
// re-performing the effect; a mismatch between what the guest is asking
// for now and what was recorded is fatal (UnexpectedOplogEntry).
type Interceptor struct {
	log      *oplog.Oplog
	workerID domain.WorkerID

	// replayIdx is the next oplog index to consult. While it is less
	// than the log length observed at load time, we are replaying;
	// once it catches up, every further call is executed live and
	// appended.
	replayIdx uint64
	replayEnd uint64
}

func NewInterceptor(log *oplog.Oplog, workerID domain.WorkerID, replayEnd uint64) *Interceptor {
	return &Interceptor{log: log, workerID: workerID, replayEnd: replayEnd}
}

// PeekNextInvocation consumes the Invocation entry at the current replay
// position and returns its payload, or ok=false once the replay
// position has caught up to replayEnd (meaning every historical
// invocation has been re-driven and live execution can begin). It must
// only be called between invocations, never mid-invocation — the
// entries between one Invocation entry and the next are exclusively
// that invocation's own EffectResult/Log entries, consumed internally by
// Intercept as the re-executed export makes its capability calls.
func (ic *Interceptor) PeekNextInvocation(ctx context.Context) (*domain.InvocationPayload, bool, error) {
	idx := atomic.LoadUint64(&ic.replayIdx)
	if idx >= ic.replayEnd {
		return nil, false, nil
	}

	entries, err := ic.log.Read(ctx, ic.workerID, idx, idx+1)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 || entries[0].Kind != domain.EntryInvocation {
		return nil, false, fmt.Errorf("runtime: expected Invocation entry at index %d during replay", idx)
	}

	var payload domain.InvocationPayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		return nil, false, err
	}
	atomic.AddUint64(&ic.replayIdx, 1)
	return &payload, true, nil
}

// Intercept runs run() unless the current replay position holds a
// recorded EffectResult for (effect, call), in which case it returns
// that recorded result/error instead of invoking run at all.
func (ic *Interceptor) Intercept(ctx context.Context, effect domain.EffectKind, call string, run func() (json.RawMessage, error)) (json.RawMessage, error) {
	idx := atomic.LoadUint64(&ic.replayIdx)

	if idx < ic.replayEnd {
		recorded, ok, err := ic.log.FindEffectResult(ctx, ic.workerID, idx, effect, call)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.UnexpectedOplogEntry(string(effect)+":"+call, "(other entry)")
		}
		atomic.AddUint64(&ic.replayIdx, 1)
		if recorded.Error != "" {
			return nil, fmt.Errorf("%s", recorded.Error)
		}
		return recorded.Result, nil
	}

	result, runErr := run()
	payload := domain.EffectResultPayload{Effect: effect, Call: call, Result: result}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	if _, err := ic.log.Append(ctx, ic.workerID, domain.EntryEffectResult, payload); err != nil {
		return nil, err
	}
	atomic.AddUint64(&ic.replayIdx, 1)
	return result, runErr
}

// capabilityBundle wraps the guest-facing capabilities (wasmhost.Clock
// etc.) so every call routes through Intercept before reaching the real
// implementation.
type capabilityBundle struct {
	ic      *Interceptor
	ctx     context.Context
	clock   wasmhost.Clock
	random  wasmhost.Random
	kv      wasmhost.KeyValue
	http    wasmhost.HTTPClient
	blob    wasmhost.BlobStore
	rpc     wasmhost.RPCClient
}

func encode(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func (c *capabilityBundle) Now() (int64, error) {
	raw, err := c.ic.Intercept(c.ctx, domain.EffectClock, "now", func() (json.RawMessage, error) {
		return encode(c.clock.Now().UnixNano()), nil
	})
	if err != nil {
		return 0, err
	}
	var ns int64
	if err := json.Unmarshal(raw, &ns); err != nil {
		return 0, err
	}
	return ns, nil
}

func (c *capabilityBundle) RandomUint64() (uint64, error) {
	raw, err := c.ic.Intercept(c.ctx, domain.EffectRandom, "uint64", func() (json.RawMessage, error) {
		return encode(c.random.Uint64()), nil
	})
	if err != nil {
		return 0, err
	}
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (c *capabilityBundle) KVGet(key string) ([]byte, bool, error) {
	type result struct {
		Value []byte `json:"value"`
		Found bool   `json:"found"`
	}
	raw, err := c.ic.Intercept(c.ctx, domain.EffectKeyValue, "get:"+key, func() (json.RawMessage, error) {
		v, found, err := c.kv.Get(c.ctx, key)
		if err != nil {
			return nil, err
		}
		return encode(result{Value: v, Found: found}), nil
	})
	if err != nil {
		return nil, false, err
	}
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false, err
	}
	return r.Value, r.Found, nil
}

func (c *capabilityBundle) KVSet(key string, value []byte) error {
	_, err := c.ic.Intercept(c.ctx, domain.EffectKeyValue, "set:"+key, func() (json.RawMessage, error) {
		return encode(true), c.kv.Set(c.ctx, key, value)
	})
	return err
}

func (c *capabilityBundle) HTTPDo(method, url string, body []byte) (int, []byte, error) {
	type result struct {
		Status int    `json:"status"`
		Body   []byte `json:"body"`
	}
	raw, err := c.ic.Intercept(c.ctx, domain.EffectHTTP, method+" "+url, func() (json.RawMessage, error) {
		status, respBody, err := c.http.Do(c.ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		return encode(result{Status: status, Body: respBody}), nil
	})
	if err != nil {
		return 0, nil, err
	}
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return 0, nil, err
	}
	return r.Status, r.Body, nil
}

func (c *capabilityBundle) BlobPut(data []byte) (string, error) {
	raw, err := c.ic.Intercept(c.ctx, domain.EffectBlob, "put", func() (json.RawMessage, error) {
		id, err := c.blob.Put(c.ctx, data)
		if err != nil {
			return nil, err
		}
		return encode(id), nil
	})
	if err != nil {
		return "", err
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *capabilityBundle) BlobGet(contentID string) ([]byte, error) {
	raw, err := c.ic.Intercept(c.ctx, domain.EffectBlob, "get:"+contentID, func() (json.RawMessage, error) {
		data, err := c.blob.Get(c.ctx, contentID)
		if err != nil {
			return nil, err
		}
		return encode(data), nil
	})
	if err != nil {
		return nil, err
	}
	var data []byte
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *capabilityBundle) RPCInvoke(worker, function string, params []byte) ([]byte, error) {
	type result struct {
		Result []byte `json:"result"`
	}
	raw, err := c.ic.Intercept(c.ctx, domain.EffectRPC, worker+"/"+function, func() (json.RawMessage, error) {
		resp, err := c.rpc.Invoke(c.ctx, worker, function, params)
		if err != nil {
			return nil, err
		}
		return encode(result{Result: resp}), nil
	})
	if err != nil {
		return nil, err
	}
	var r result
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r.Result, nil
}
