package kvstore

import (
	"context"
	"testing"
)

func TestMemoryOrderedAppendAndRange(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i, v := range []string{"a", "b", "c"} {
		idx, err := m.OrderedAppend(ctx, "w1", []byte(v))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if idx != uint64(i) {
			t.Fatalf("append index = %d, want %d", idx, i)
		}
	}

	entries, err := m.Range(ctx, "w1", 1, 0)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(entries) != 2 || string(entries[0].Value) != "b" || string(entries[1].Value) != "c" {
		t.Fatalf("unexpected range result: %+v", entries)
	}
}

func TestMemoryCAS(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.CAS(ctx, "k", 0, []byte("v1")); err != nil {
		t.Fatalf("initial cas: %v", err)
	}
	if err := m.CAS(ctx, "k", 0, []byte("v2")); err == nil {
		t.Fatalf("expected stale cas to fail")
	}
	if err := m.CAS(ctx, "k", 1, []byte("v2")); err != nil {
		t.Fatalf("correct-version cas: %v", err)
	}

	val, ver, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(val) != "v2" || ver != 2 {
		t.Fatalf("got %s v%d, want v2 v2", val, ver)
	}
}

func TestMemoryGetNotFound(t *testing.T) {
	m := NewMemory()
	if _, _, err := m.Get(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
