package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	txcontext "deedblock/pkg/platform/tx"
)

// Store persists finalized registrations. Records are append-only.
type Store interface {
	Save(ctx context.Context, reg *Registration) error
	Get(ctx context.Context, regID id.SubmissionID) (*Registration, error)
	ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*Registration, error)
}

// MemoryStore keeps finalized registrations in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[id.SubmissionID]*Registration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[id.SubmissionID]*Registration)}
}

func (s *MemoryStore) Save(_ context.Context, reg *Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *reg
	s.records[reg.ID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, regID id.SubmissionID) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.records[regID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *reg
	return &copied, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, ownerID id.OwnerID) ([]*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Registration
	for _, reg := range s.records {
		if reg.OwnerID == ownerID {
			copied := *reg
			out = append(out, &copied)
		}
	}
	return out, nil
}

// PostgresStore persists finalized registrations with the manifest as a
// JSONB document.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, reg *Registration) error {
	manifest, err := json.Marshal(reg.Manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO registrations (id, owner_id, manifest, document_manifest_ref, photo_manifest_ref, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(reg.ID), uuid.UUID(reg.OwnerID), manifest,
		reg.DocumentManifestRef, reg.PhotoManifestRef, string(reg.Status), reg.SubmittedAt)
	if err != nil {
		return fmt.Errorf("save registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, regID id.SubmissionID) (*Registration, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT id, owner_id, manifest, document_manifest_ref, photo_manifest_ref, status, submitted_at
		 FROM registrations WHERE id = $1`,
		uuid.UUID(regID))
	return scanRegistration(row.Scan)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*Registration, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT id, owner_id, manifest, document_manifest_ref, photo_manifest_ref, status, submitted_at
		 FROM registrations WHERE owner_id = $1 ORDER BY submitted_at DESC`,
		uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*Registration
	for rows.Next() {
		reg, err := scanRegistration(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

func scanRegistration(scan func(...any) error) (*Registration, error) {
	var (
		regID    uuid.UUID
		ownerID  uuid.UUID
		manifest []byte
		status   string
		reg      Registration
	)
	err := scan(&regID, &ownerID, &manifest, &reg.DocumentManifestRef, &reg.PhotoManifestRef, &status, &reg.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load registration: %w", err)
	}
	if err := json.Unmarshal(manifest, &reg.Manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	reg.ID = id.SubmissionID(regID)
	reg.OwnerID = id.OwnerID(ownerID)
	reg.Status = Status(status)
	return &reg, nil
}
