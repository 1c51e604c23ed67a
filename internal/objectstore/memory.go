package objectstore

import (
	"context"
	"strings"
	"sync"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

// MemoryAdapter keeps objects in memory. It mirrors the filesystem adapter's
// path scheme so tests exercise the same references production produces.
type MemoryAdapter struct {
	mu      sync.RWMutex
	objects map[string][]byte
	signer  *URLSigner
}

// NewMemory constructs an in-memory adapter.
func NewMemory(signer *URLSigner) *MemoryAdapter {
	return &MemoryAdapter{objects: make(map[string][]byte), signer: signer}
}

func (a *MemoryAdapter) Upload(ctx context.Context, ownerID id.OwnerID, category Category, fieldKey, name, contentType string, data []byte) (models.FileRef, error) {
	now := requestcontext.Now(ctx)
	path := objectPath(ownerID, category, fieldKey, name, now)

	a.mu.Lock()
	a.objects[path] = append([]byte(nil), data...)
	a.mu.Unlock()

	url, err := a.signer.Sign(path, now)
	if err != nil {
		return models.FileRef{}, err
	}
	return models.FileRef{URL: url, Path: path, Name: name, ContentType: contentType}, nil
}

func (a *MemoryAdapter) Delete(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.objects, path)
	return nil
}

func (a *MemoryAdapter) Resign(ctx context.Context, path string) (string, error) {
	a.mu.RLock()
	_, ok := a.objects[path]
	a.mu.RUnlock()
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return a.signer.Sign(path, requestcontext.Now(ctx))
}

func (a *MemoryAdapter) Download(_ context.Context, path string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.objects[path]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (a *MemoryAdapter) List(_ context.Context, ownerID id.OwnerID) ([]string, error) {
	prefix := ownerID.String() + "/"
	a.mu.RLock()
	defer a.mu.RUnlock()
	var paths []string
	for path := range a.objects {
		if strings.HasPrefix(path, prefix) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (a *MemoryAdapter) ClearAll(_ context.Context, ownerID id.OwnerID) error {
	prefix := ownerID.String() + "/"
	a.mu.Lock()
	defer a.mu.Unlock()
	for path := range a.objects {
		if strings.HasPrefix(path, prefix) {
			delete(a.objects, path)
		}
	}
	return nil
}

// Len reports the number of stored objects. Test helper.
func (a *MemoryAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.objects)
}
