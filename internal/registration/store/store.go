package store

import (
	"context"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
)

// DraftStore persists at most one in-progress draft per owner. Save fully
// replaces the previous snapshot; partial updates do not exist at this layer.
type DraftStore interface {
	// Save upserts the owner's draft snapshot.
	Save(ctx context.Context, draft *models.Draft) error
	// Load returns the owner's draft or sentinel.ErrNotFound.
	Load(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error)
	// Delete removes the owner's draft. Deleting a missing draft is not an error.
	Delete(ctx context.Context, ownerID id.OwnerID) error
}
