package service

import (
	"context"
	"time"

	"deedblock/internal/objectstore"
	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

// UploadDocument stores the bytes for one of the four required document
// slots and binds the resulting reference to the slot. A previously stored
// object in the same slot is deleted after the new one is bound. The save is
// immediate: an upload is an explicit action, not a keystroke.
func (s *Service) UploadDocument(ctx context.Context, ownerID id.OwnerID, key models.DocumentKey, name, contentType string, data []byte) (*models.Draft, error) {
	if !models.IsValidDocumentKey(key) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document slot: %s", key)
	}
	if len(data) == 0 {
		return nil, dErrors.NewField(dErrors.CodeValidation, string(key), "file is empty")
	}

	ref, err := s.upload(ctx, ownerID, objectstore.CategoryDocuments, string(key), name, contentType, data)
	if err != nil {
		return nil, err
	}

	var previous string
	draft, err := s.Mutate(ctx, ownerID, func(d *models.Draft) error {
		slot, serr := d.Documents.Slot(key)
		if serr != nil {
			return serr
		}
		previous, _ = slot.StoredPath()
		*slot = models.StoredSlot(ref)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ferr := s.Flush(ctx, ownerID); ferr != nil {
		return nil, unavailable("saving draft failed", ferr)
	}
	if previous != "" && previous != ref.Path {
		s.deleteObject(ctx, previous)
	}
	return draft, nil
}

// UploadPhoto appends a property photo, honoring the photo cap. The cap is
// checked before the object is stored so a rejected photo leaves nothing
// behind.
func (s *Service) UploadPhoto(ctx context.Context, ownerID id.OwnerID, name, contentType string, data []byte) (*models.Draft, error) {
	if len(data) == 0 {
		return nil, dErrors.NewField(dErrors.CodeValidation, "photo", "file is empty")
	}

	sess := s.session(ownerID)
	sess.mu.Lock()
	if err := s.hydrateLocked(ctx, sess, ownerID); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	full := len(sess.draft.Photos) >= models.MaxPhotos
	sess.mu.Unlock()
	if full {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"Maximum %d photos allowed. %d photo(s) were not added.", models.MaxPhotos, 1)
	}

	ref, err := s.upload(ctx, ownerID, objectstore.CategoryPhotos, "photo", name, contentType, data)
	if err != nil {
		return nil, err
	}

	draft, err := s.Mutate(ctx, ownerID, func(d *models.Draft) error {
		return d.AddPhotos([]models.FileSlot{models.StoredSlot(ref)})
	})
	if err != nil {
		// Raced past the cap between the check and the append.
		s.deleteObject(ctx, ref.Path)
		return nil, err
	}
	if ferr := s.Flush(ctx, ownerID); ferr != nil {
		return nil, unavailable("saving draft failed", ferr)
	}
	return draft, nil
}

// RemoveDocument empties a document slot. Any pending autosave is cancelled
// before the object is deleted, the emptied snapshot is persisted, and only
// then is the stored object removed, so a debounced save can never write a
// reference to an object that is already gone.
func (s *Service) RemoveDocument(ctx context.Context, ownerID id.OwnerID, key models.DocumentKey) (*models.Draft, error) {
	if !models.IsValidDocumentKey(key) {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document slot: %s", key)
	}
	var stored string
	draft, err := s.Mutate(ctx, ownerID, func(d *models.Draft) error {
		slot, serr := d.Documents.Slot(key)
		if serr != nil {
			return serr
		}
		stored, _ = slot.StoredPath()
		*slot = models.EmptySlot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ferr := s.Flush(ctx, ownerID); ferr != nil {
		return nil, unavailable("saving draft failed", ferr)
	}
	if stored != "" {
		s.deleteObject(ctx, stored)
	}
	return draft, nil
}

// RemovePhoto drops the photo at index with the same persist-then-delete
// ordering as RemoveDocument.
func (s *Service) RemovePhoto(ctx context.Context, ownerID id.OwnerID, index int) (*models.Draft, error) {
	var stored string
	draft, err := s.Mutate(ctx, ownerID, func(d *models.Draft) error {
		path, rerr := d.RemovePhoto(index)
		if rerr != nil {
			return rerr
		}
		stored = path
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ferr := s.Flush(ctx, ownerID); ferr != nil {
		return nil, unavailable("saving draft failed", ferr)
	}
	if stored != "" {
		s.deleteObject(ctx, stored)
	}
	return draft, nil
}

// ResetDocuments empties every document slot and the photo list, persists
// the emptied snapshot, then deletes the orphaned objects.
func (s *Service) ResetDocuments(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	var stored []string
	draft, err := s.Mutate(ctx, ownerID, func(d *models.Draft) error {
		stored = d.ResetDocuments()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ferr := s.Flush(ctx, ownerID); ferr != nil {
		return nil, unavailable("saving draft failed", ferr)
	}
	for _, path := range stored {
		s.deleteObject(ctx, path)
	}
	return draft, nil
}

func (s *Service) upload(ctx context.Context, ownerID id.OwnerID, category objectstore.Category, fieldKey, name, contentType string, data []byte) (models.FileRef, error) {
	start := time.Now()
	ref, err := s.objects.Upload(ctx, ownerID, category, fieldKey, name, contentType, data)
	s.metrics.ObserveStorageOp("upload", time.Since(start))
	if err != nil {
		return models.FileRef{}, unavailable("storing file failed", err)
	}
	return ref, nil
}

// sweepOrphans deletes owner objects no draft slot references. A crash or a
// failed delete between persisting a cleared slot and removing its object
// leaves the blob behind; the next hydration reclaims it.
func (s *Service) sweepOrphans(ctx context.Context, ownerID id.OwnerID, draft *models.Draft) {
	stored, err := s.objects.List(ctx, ownerID)
	if err != nil {
		s.logger.Warn("listing owner objects failed, skipping orphan sweep",
			"owner_id", ownerID, "error", err)
		return
	}
	referenced := make(map[string]struct{})
	for _, path := range draft.StoredPaths() {
		referenced[path] = struct{}{}
	}
	for _, path := range stored {
		if _, ok := referenced[path]; !ok {
			s.deleteObject(ctx, path)
		}
	}
}

func (s *Service) deleteObject(ctx context.Context, path string) {
	start := time.Now()
	if err := s.objects.Delete(ctx, path); err != nil {
		s.logger.Warn("deleting stored object failed", "path", path, "error", err)
	}
	s.metrics.ObserveStorageOp("delete", time.Since(start))
}
