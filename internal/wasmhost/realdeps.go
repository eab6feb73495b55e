package wasmhost

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oriys/golem/internal/domain"
	"github.com/oriys/golem/internal/kvstore"
)

// SystemClock is the production Clock: the host's wall clock, exactly
// the nondeterministic source a replay must intercept rather than let a
// worker call directly.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CryptoRandom is the production Random, seeded from the OS CSPRNG on
// every call rather than a process-global PRNG, so concurrent workers
// never share generator state.
type CryptoRandom struct{}

func (CryptoRandom) Uint64() uint64 {
	var buf [8]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		panic(fmt.Sprintf("wasmhost: crypto/rand read failed: %v", err))
	}
	return binary.BigEndian.Uint64(buf[:])
}

// StoreKeyValue adapts a kvstore.Store's status cell into the
// guest-facing "golem:kv" capability, namespacing every key under a
// worker-specific prefix so unrelated workers never see each other's
// entries.
type StoreKeyValue struct {
	store  kvstore.Store
	prefix string
}

func NewStoreKeyValue(store kvstore.Store, namespace string) *StoreKeyValue {
	return &StoreKeyValue{store: store, prefix: "guestkv:" + namespace + ":"}
}

func (kv *StoreKeyValue) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, _, err := kv.store.Get(ctx, kv.prefix+key)
	if err == kvstore.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (kv *StoreKeyValue) Set(ctx context.Context, key string, value []byte) error {
	return kv.store.Put(ctx, kv.prefix+key, value)
}

// HTTPCapability is the production HTTPClient, a thin wrapper over
// net/http so outbound calls are still funneled through a single
// interceptable seam rather than a worker reaching for net/http itself.
type HTTPCapability struct {
	client *http.Client
}

func NewHTTPCapability(timeout time.Duration) *HTTPCapability {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPCapability{client: &http.Client{Timeout: timeout}}
}

func (h *HTTPCapability) Do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	var reqBody io.Reader
	if len(body) > 0 {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("wasmhost: build request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("wasmhost: do request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("wasmhost: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// BlobCapability is the production BlobStore, content-addressing blobs
// by the same sha256-of-bytes scheme internal/template uses for
// template content IDs.
type BlobCapability struct {
	store kvstore.Store
}

func NewBlobCapability(store kvstore.Store) *BlobCapability {
	return &BlobCapability{store: store}
}

func (b *BlobCapability) Put(ctx context.Context, data []byte) (string, error) {
	id := domain.ContentHash(data)
	if err := b.store.Put(ctx, "blob:"+id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (b *BlobCapability) Get(ctx context.Context, contentID string) ([]byte, error) {
	data, _, err := b.store.Get(ctx, "blob:"+contentID)
	if err == kvstore.ErrNotFound {
		return nil, fmt.Errorf("wasmhost: blob %s not found", contentID)
	}
	return data, err
}
