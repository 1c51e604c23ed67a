package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
)

// MemoryStore keeps draft snapshots in memory. Drafts go through the same
// JSON round trip as the PostgreSQL store so in-memory bytes are shed the
// same way in both.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[id.OwnerID][]byte
}

// NewMemory constructs an in-memory draft store.
func NewMemory() *MemoryStore {
	return &MemoryStore{drafts: make(map[id.OwnerID][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, draft *models.Draft) error {
	if draft == nil {
		return fmt.Errorf("draft is required")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.OwnerID] = raw
	return nil
}

func (s *MemoryStore) Load(_ context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	s.mu.RLock()
	raw, ok := s.drafts[ownerID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	draft.Normalize()
	return &draft, nil
}

func (s *MemoryStore) Delete(_ context.Context, ownerID id.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, ownerID)
	return nil
}
