package objectstore

import (
	"context"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
)

// Category namespaces uploaded objects under an owner.
type Category string

const (
	CategoryDocuments Category = "documents"
	CategoryPhotos    Category = "photos"
)

// Adapter is the draft-phase object store. Objects live under
// ownerID/category/ and are addressed by their opaque path; URLs are
// time-limited signed views over that path and are never authoritative.
//
// Adapters are interface-driven so the draft service can run against the
// in-memory implementation in tests and against the filesystem store in
// production without rewiring.
type Adapter interface {
	// Upload stores the bytes and returns a reference carrying the stable
	// path and a freshly signed URL.
	Upload(ctx context.Context, ownerID id.OwnerID, category Category, fieldKey, name, contentType string, data []byte) (models.FileRef, error)
	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
	// Resign issues a fresh signed URL for an existing object. Returns
	// sentinel.ErrNotFound when the object no longer exists.
	Resign(ctx context.Context, path string) (string, error)
	// Download returns the object bytes, or sentinel.ErrNotFound.
	Download(ctx context.Context, path string) ([]byte, error)
	// List returns the paths of every object belonging to the owner.
	List(ctx context.Context, ownerID id.OwnerID) ([]string, error)
	// ClearAll removes every object belonging to the owner. Best effort:
	// it keeps going past individual failures and reports the first error.
	ClearAll(ctx context.Context, ownerID id.OwnerID) error
}
