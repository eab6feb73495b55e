package template

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oriys/golem/internal/domain"
)

// PostgresStore is a Store backed by pgx, for deployments that want the
// template catalogue in the same relational store as everything else
// (grounded on internal/store.PostgresStore's pool-init/ensureSchema
// shape).
type PostgresStore struct {
	pool   *pgxpool.Pool
	parser Parser
}

func NewPostgresStore(ctx context.Context, dsn string, parser Parser) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("template: postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("template: create postgres pool: %w", err)
	}
	s := &PostgresStore{pool: pool, parser: parser}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS templates (
		template_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		account TEXT NOT NULL,
		name TEXT NOT NULL,
		content_id TEXT NOT NULL,
		wasm_bytes BYTEA NOT NULL,
		metadata JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (template_id, version)
	)`)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, id domain.TemplateID, account domain.AccountID, name string, wasmBytes []byte) (*domain.Template, error) {
	meta, err := s.parser.Parse(wasmBytes)
	if err != nil {
		return nil, err
	}
	hash := domain.ContentHash(wasmBytes)

	row := s.pool.QueryRow(ctx, `SELECT version, created_at FROM templates WHERE template_id = $1 AND content_id = $2 ORDER BY version LIMIT 1`, string(id), hash)
	var existingVersion int
	var createdAt time.Time
	if err := row.Scan(&existingVersion, &createdAt); err == nil {
		return &domain.Template{ID: id, Account: account, Version: existingVersion, Name: name, ContentID: hash, Metadata: meta, CreatedAt: createdAt}, nil
	} else if err != pgx.ErrNoRows {
		return nil, err
	}

	var nextVersion int
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) + 1 FROM templates WHERE template_id = $1`, string(id)).Scan(&nextVersion); err != nil {
		return nil, err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `INSERT INTO templates (template_id, version, account, name, content_id, wasm_bytes, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, string(id), nextVersion, string(account), name, hash, wasmBytes, metaJSON, now)
	if err != nil {
		return nil, err
	}

	return &domain.Template{ID: id, Account: account, Version: nextVersion, Name: name, ContentID: hash, WasmBytes: wasmBytes, Metadata: meta, CreatedAt: now}, nil
}

func (s *PostgresStore) scanRow(row pgx.Row, withBytes bool) (*domain.Template, error) {
	var t domain.Template
	var idStr, accountStr string
	var metaJSON []byte
	var wasmBytes []byte
	if err := row.Scan(&idStr, &t.Version, &accountStr, &t.Name, &t.ContentID, &wasmBytes, &metaJSON, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ID = domain.TemplateID(idStr)
	t.Account = domain.AccountID(accountStr)
	if err := json.Unmarshal(metaJSON, &t.Metadata); err != nil {
		return nil, err
	}
	if withBytes {
		t.WasmBytes = wasmBytes
	}
	return &t, nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.TemplateID, version int) (*domain.Template, error) {
	row := s.pool.QueryRow(ctx, `SELECT template_id, version, account, name, content_id, wasm_bytes, metadata, created_at
		FROM templates WHERE template_id = $1 AND version = $2`, string(id), version)
	t, err := s.scanRow(row, true)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, id, version)
	}
	return t, err
}

func (s *PostgresStore) GetLatest(ctx context.Context, id domain.TemplateID) (*domain.Template, error) {
	row := s.pool.QueryRow(ctx, `SELECT template_id, version, account, name, content_id, wasm_bytes, metadata, created_at
		FROM templates WHERE template_id = $1 ORDER BY version DESC LIMIT 1`, string(id))
	t, err := s.scanRow(row, true)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, err
}

func (s *PostgresStore) Find(ctx context.Context, account domain.AccountID, nameFilter string) ([]*domain.Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT ON (template_id) template_id, version, account, name, content_id, wasm_bytes, metadata, created_at
		FROM templates WHERE account = $1 ORDER BY template_id, version DESC`, string(account))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Template
	for rows.Next() {
		t, err := s.scanRow(rows, false)
		if err != nil {
			return nil, err
		}
		if nameFilter != "" && !strings.Contains(t.Name, nameFilter) {
			continue
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Metadata(ctx context.Context, id domain.TemplateID) ([]domain.Template, error) {
	rows, err := s.pool.Query(ctx, `SELECT template_id, version, account, name, content_id, wasm_bytes, metadata, created_at
		FROM templates WHERE template_id = $1 ORDER BY version`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		t, err := s.scanRow(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
