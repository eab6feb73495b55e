// Package template implements the immutable, content-addressed template
// store (C1): put/get/get_latest/find/metadata, idempotent on identical
// bytes, rejecting invalid WASM at upload time.
package template

import (
	"context"
	"errors"

	"github.com/oriys/golem/internal/domain"
)

var (
	ErrNotFound     = errors.New("template: not found")
	ErrParseFailed  = errors.New("template: parse failed")
)

// Parser extracts TemplateMetadata from raw WASM bytes and rejects
// malformed input. A full component-model parser would live behind this
// interface; see internal/wasmhost for the execution-side seam.
type Parser interface {
	Parse(wasmBytes []byte) (domain.TemplateMetadata, error)
}

// Store is the C1 contract.
type Store interface {
	// Put uploads wasmBytes as a new version of id, unless an existing
	// version already has the same content hash, in which case that
	// version is returned unchanged (idempotent put).
	Put(ctx context.Context, id domain.TemplateID, account domain.AccountID, name string, wasmBytes []byte) (*domain.Template, error)

	// Get returns a specific version of id.
	Get(ctx context.Context, id domain.TemplateID, version int) (*domain.Template, error)

	// GetLatest returns the highest-versioned template for id.
	GetLatest(ctx context.Context, id domain.TemplateID) (*domain.Template, error)

	// Find lists all templates visible to account, optionally filtered
	// by name substring.
	Find(ctx context.Context, account domain.AccountID, nameFilter string) ([]*domain.Template, error)

	// Metadata returns just the metadata+version list for id, without
	// wasm bytes.
	Metadata(ctx context.Context, id domain.TemplateID) ([]domain.Template, error)
}
