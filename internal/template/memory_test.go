package template

import (
	"context"
	"testing"

	"github.com/oriys/golem/internal/domain"
)

func validWasm(trailer string) []byte {
	b := append([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}, []byte(trailer)...)
	return b
}

func TestPutIsIdempotentOnIdenticalBytes(t *testing.T) {
	s := NewMemoryStore(BinaryParser{})
	ctx := context.Background()
	bytes1 := validWasm("hello")

	t1, err := s.Put(ctx, "tpl1", "acct1", "greeter", bytes1)
	if err != nil {
		t.Fatalf("first put: %v", err)
	}
	t2, err := s.Put(ctx, "tpl1", "acct1", "greeter", bytes1)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if t1.Version != t2.Version {
		t.Fatalf("expected idempotent put to return same version, got %d and %d", t1.Version, t2.Version)
	}

	t3, err := s.Put(ctx, "tpl1", "acct1", "greeter", validWasm("world"))
	if err != nil {
		t.Fatalf("third put: %v", err)
	}
	if t3.Version != t1.Version+1 {
		t.Fatalf("expected new version for different bytes, got %d", t3.Version)
	}
}

func TestPutRejectsInvalidWasm(t *testing.T) {
	s := NewMemoryStore(BinaryParser{})
	_, err := s.Put(context.Background(), "tpl1", "acct1", "bad", []byte("not wasm"))
	if err == nil {
		t.Fatalf("expected parse error for invalid WASM")
	}
}

func TestGetLatest(t *testing.T) {
	s := NewMemoryStore(BinaryParser{})
	ctx := context.Background()
	if _, err := s.Put(ctx, "tpl1", "acct1", "greeter", validWasm("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(ctx, "tpl1", "acct1", "greeter", validWasm("b")); err != nil {
		t.Fatal(err)
	}
	latest, err := s.GetLatest(ctx, "tpl1")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.Version != 2 {
		t.Fatalf("expected version 2, got %d", latest.Version)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	s := NewMemoryStore(BinaryParser{})
	if _, err := s.GetLatest(context.Background(), domain.TemplateID("missing")); err == nil {
		t.Fatalf("expected not found error")
	}
}
