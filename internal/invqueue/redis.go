package invqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oriys/golem/internal/domain"
)

const (
	queuePrefix = "golem:invqueue:"
	keyPrefix   = "golem:invkey:"
	pollTimeout = time.Second
)

// Redis is a Queue backed by go-redis, grounded on the teacher's
// queue/redis_list_notifier.go LPUSH/BRPOP push-pull pattern, generalized
// from one shared queue to one FIFO list per worker plus a parallel
// key->state hash for the invocation-key registry. The teacher's
// notifier imports github.com/redis/go-redis/v9; this module already
// depends on github.com/go-redis/redis/v8 via internal/kvstore, so the
// v8 client is reused here instead of introducing a second Redis driver.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("invqueue: redis connection failed: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) Enqueue(ctx context.Context, workerID domain.WorkerID, status domain.WorkerStatus, req Request) error {
	if status == domain.StatusFailed || status == domain.StatusExited {
		return ErrWorkerTerminal
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.client.LPush(ctx, queuePrefix+workerID.String(), raw).Err()
}

// Dequeue polls BRPop in pollTimeout slices so ctx cancellation is
// observed promptly instead of blocking indefinitely inside redis-server,
// mirroring the teacher's Subscribe loop.
func (r *Redis) Dequeue(ctx context.Context, workerID domain.WorkerID) (Request, bool, error) {
	listKey := queuePrefix + workerID.String()
	for {
		select {
		case <-ctx.Done():
			return Request{}, false, ctx.Err()
		default:
		}

		res, err := r.client.BRPop(ctx, pollTimeout, listKey).Result()
		if errors.Is(err, redis.Nil) {
			continue // timed out this slice, no element yet
		}
		if err != nil {
			if ctx.Err() != nil {
				return Request{}, false, ctx.Err()
			}
			return Request{}, false, err
		}

		// res is [listKey, value]
		var req Request
		if err := json.Unmarshal([]byte(res[1]), &req); err != nil {
			return Request{}, false, err
		}
		return req, true, nil
	}
}

func (r *Redis) keyHashField(workerID domain.WorkerID, keyValue string) (hashKey, field string) {
	return keyPrefix + workerID.String(), keyValue
}

func (r *Redis) readKey(ctx context.Context, workerID domain.WorkerID, keyValue string) (domain.InvocationKey, bool, error) {
	hashKey, field := r.keyHashField(workerID, keyValue)
	raw, err := r.client.HGet(ctx, hashKey, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.InvocationKey{}, false, nil
	}
	if err != nil {
		return domain.InvocationKey{}, false, err
	}
	var k domain.InvocationKey
	if err := json.Unmarshal(raw, &k); err != nil {
		return domain.InvocationKey{}, false, err
	}
	return k, true, nil
}

func (r *Redis) writeKey(ctx context.Context, workerID domain.WorkerID, k domain.InvocationKey) error {
	hashKey, field := r.keyHashField(workerID, k.KeyValue)
	raw, err := json.Marshal(k)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, hashKey, field, raw).Err()
}

func (r *Redis) Pending(ctx context.Context, workerID domain.WorkerID, keyValue string) error {
	_, found, err := r.readKey(ctx, workerID, keyValue)
	if err != nil {
		return err
	}
	if found {
		return nil
	}
	return r.writeKey(ctx, workerID, domain.InvocationKey{WorkerID: workerID, KeyValue: keyValue, State: domain.KeyPending})
}

// Await polls the key's hash field since go-redis offers no server-side
// push notification on hash field changes; pollInterval keeps this cheap
// relative to typical invocation durations.
func (r *Redis) Await(ctx context.Context, workerID domain.WorkerID, keyValue string) (domain.InvocationKey, error) {
	const pollInterval = 50 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		k, found, err := r.readKey(ctx, workerID, keyValue)
		if err != nil {
			return domain.InvocationKey{}, err
		}
		if found && k.State != domain.KeyPending {
			return k, nil
		}

		select {
		case <-ctx.Done():
			return domain.InvocationKey{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Redis) transition(ctx context.Context, workerID domain.WorkerID, keyValue string, mutate func(*domain.InvocationKey)) error {
	k, found, err := r.readKey(ctx, workerID, keyValue)
	if err != nil {
		return err
	}
	if !found {
		k = domain.InvocationKey{WorkerID: workerID, KeyValue: keyValue, State: domain.KeyPending}
	}
	if k.State != domain.KeyPending {
		return nil // idempotent: already terminal
	}
	mutate(&k)
	return r.writeKey(ctx, workerID, k)
}

func (r *Redis) Complete(ctx context.Context, workerID domain.WorkerID, keyValue string, result []domain.Value) error {
	return r.transition(ctx, workerID, keyValue, func(k *domain.InvocationKey) {
		k.State = domain.KeyCompleted
		k.Result = result
	})
}

func (r *Redis) Fail(ctx context.Context, workerID domain.WorkerID, keyValue string, failErr *domain.APIError) error {
	return r.transition(ctx, workerID, keyValue, func(k *domain.InvocationKey) {
		k.State = domain.KeyFailed
		k.FailError = domain.SerializeAPIError(failErr)
	})
}
