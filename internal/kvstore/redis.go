package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	streamPrefix = "golem:stream:"
	cellPrefix   = "golem:cell:"
	versPrefix   = "golem:cellver:"
)

// casScript atomically compares the stored version against ARGV[1] and,
// if it matches, sets the value and bumps the version in one round trip.
// Mirrors the single-round-trip Lua pattern used for name->function
// lookups in the teacher's store/redis.go.
var casScript = redis.NewScript(`
local verKey = KEYS[1]
local valKey = KEYS[2]
local expected = tonumber(ARGV[1])
local newValue = ARGV[2]

local current = redis.call('GET', verKey)
local currentVer = 0
if current then
    currentVer = tonumber(current)
end

if currentVer ~= expected then
    return -1
end

redis.call('SET', valKey, newValue)
redis.call('SET', verKey, currentVer + 1)
return currentVer + 1
`)

// Redis is a Store backed by go-redis, grounded on the teacher's
// store/redis.go key-prefix and pipelining conventions.
type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("kvstore: redis connection failed: %w", err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) OrderedAppend(ctx context.Context, key string, value []byte) (uint64, error) {
	n, err := r.client.RPush(ctx, streamPrefix+key, value).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n) - 1, nil
}

func (r *Redis) Range(ctx context.Context, key string, fromIdx, toIdx uint64) ([]Entry, error) {
	stop := int64(-1)
	if toIdx != 0 {
		stop = int64(toIdx) - 1
	}
	raw, err := r.client.LRange(ctx, streamPrefix+key, int64(fromIdx), stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(raw))
	for i, v := range raw {
		out[i] = Entry{Index: fromIdx + uint64(i), Value: []byte(v)}
	}
	return out, nil
}

func (r *Redis) Len(ctx context.Context, key string) (uint64, error) {
	n, err := r.client.LLen(ctx, streamPrefix+key).Result()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	pipe := r.client.Pipeline()
	pipe.Set(ctx, cellPrefix+key, value, 0)
	pipe.Incr(ctx, versPrefix+key)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	val, err := r.client.Get(ctx, cellPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	ver, err := r.client.Get(ctx, versPrefix+key).Uint64()
	if errors.Is(err, redis.Nil) {
		ver = 0
	} else if err != nil {
		return nil, 0, err
	}
	return val, ver, nil
}

func (r *Redis) CAS(ctx context.Context, key string, expectedVersion uint64, newValue []byte) error {
	res, err := casScript.Run(ctx, r.client, []string{versPrefix + key, cellPrefix + key}, expectedVersion, newValue).Result()
	if err != nil {
		return err
	}
	n, ok := res.(int64)
	if !ok || n < 0 {
		return ErrCASMismatch
	}
	return nil
}
