package template

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oriys/golem/internal/domain"
)

// MemoryStore is an in-process Store for tests and single-node
// development, grounded on the versioning shape of the teacher's
// store/redis.go (PublishVersion/GetVersion/ListVersions) generalized to
// content-addressed templates.
type MemoryStore struct {
	mu      sync.RWMutex
	parser  Parser
	byID    map[domain.TemplateID][]*domain.Template // ordered by version ascending
}

func NewMemoryStore(parser Parser) *MemoryStore {
	return &MemoryStore{parser: parser, byID: make(map[domain.TemplateID][]*domain.Template)}
}

func (s *MemoryStore) Put(ctx context.Context, id domain.TemplateID, account domain.AccountID, name string, wasmBytes []byte) (*domain.Template, error) {
	meta, err := s.parser.Parse(wasmBytes)
	if err != nil {
		return nil, err
	}
	hash := domain.ContentHash(wasmBytes)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.byID[id]
	for _, t := range existing {
		if t.ContentID == hash {
			return t, nil // idempotent put on identical bytes
		}
	}

	version := len(existing) + 1
	tpl := &domain.Template{
		ID:        id,
		Account:   account,
		Version:   version,
		Name:      name,
		ContentID: hash,
		WasmBytes: append([]byte(nil), wasmBytes...),
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}
	s.byID[id] = append(existing, tpl)
	return tpl, nil
}

func (s *MemoryStore) Get(ctx context.Context, id domain.TemplateID, version int) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.byID[id] {
		if t.Version == version {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, id, version)
}

func (s *MemoryStore) GetLatest(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.byID[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return versions[len(versions)-1], nil
}

func (s *MemoryStore) Find(ctx context.Context, account domain.AccountID, nameFilter string) ([]*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Template
	for _, versions := range s.byID {
		if len(versions) == 0 {
			continue
		}
		latest := versions[len(versions)-1]
		if latest.Account != account {
			continue
		}
		if nameFilter != "" && !strings.Contains(latest.Name, nameFilter) {
			continue
		}
		out = append(out, latest)
	}
	return out, nil
}

func (s *MemoryStore) Metadata(ctx context.Context, id domain.TemplateID) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.byID[id]
	out := make([]domain.Template, len(versions))
	for i, t := range versions {
		cp := *t
		cp.WasmBytes = nil
		out[i] = cp
	}
	return out, nil
}
