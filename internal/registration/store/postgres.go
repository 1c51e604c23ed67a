package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	txcontext "deedblock/pkg/platform/tx"
)

// PostgresStore persists draft snapshots in PostgreSQL, one row per owner.
// The snapshot is stored as a JSONB document: the draft is a single aggregate
// and every save replaces it wholesale, so relational decomposition buys
// nothing here.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed draft store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, draft *models.Draft) error {
	if draft == nil {
		return fmt.Errorf("draft is required")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO registration_drafts (owner_id, snapshot, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id)
		DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`,
		uuid.UUID(draft.OwnerID), raw, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	var raw []byte
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT snapshot FROM registration_drafts WHERE owner_id = $1`,
		uuid.UUID(ownerID)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	draft.Normalize()
	return &draft, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID id.OwnerID) error {
	if _, err := s.execer(ctx).ExecContext(ctx,
		`DELETE FROM registration_drafts WHERE owner_id = $1`,
		uuid.UUID(ownerID)); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
