package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FSAdapter stores objects on the local filesystem under a root directory.
// Object paths are relative to the root and follow
// ownerID/category/fieldKey_timestamp_name.
type FSAdapter struct {
	root   string
	signer *URLSigner
}

// NewFS constructs a filesystem-backed adapter rooted at dir.
func NewFS(dir string, signer *URLSigner) (*FSAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create object root: %w", err)
	}
	return &FSAdapter{root: dir, signer: signer}, nil
}

func (a *FSAdapter) Upload(ctx context.Context, ownerID id.OwnerID, category Category, fieldKey, name, contentType string, data []byte) (models.FileRef, error) {
	now := requestcontext.Now(ctx)
	path := objectPath(ownerID, category, fieldKey, name, now)

	full := filepath.Join(a.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return models.FileRef{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return models.FileRef{}, fmt.Errorf("write object: %w", err)
	}

	url, err := a.signer.Sign(path, now)
	if err != nil {
		return models.FileRef{}, err
	}
	return models.FileRef{URL: url, Path: path, Name: name, ContentType: contentType}, nil
}

func (a *FSAdapter) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(a.root, filepath.FromSlash(path)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (a *FSAdapter) Resign(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(filepath.Join(a.root, filepath.FromSlash(path))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("stat object: %w", err)
	}
	return a.signer.Sign(path, requestcontext.Now(ctx))
}

func (a *FSAdapter) Download(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.root, filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

func (a *FSAdapter) List(_ context.Context, ownerID id.OwnerID) ([]string, error) {
	dir := filepath.Join(a.root, ownerID.String())
	var paths []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(a.root, p)
		if rerr != nil {
			return rerr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list owner objects: %w", err)
	}
	return paths, nil
}

func (a *FSAdapter) ClearAll(_ context.Context, ownerID id.OwnerID) error {
	dir := filepath.Join(a.root, ownerID.String())
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear owner objects: %w", err)
	}
	return nil
}

// objectPath builds the storage key for a fresh upload. The random component
// keeps repeat uploads of the same field from aliasing to one key, so a
// delete of the old object can never destroy the new one.
func objectPath(ownerID id.OwnerID, category Category, fieldKey, name string, now time.Time) string {
	return fmt.Sprintf("%s/%s/%s_%d_%s_%s", ownerID, category, fieldKey, now.UnixMilli(), uuid.NewString()[:8], sanitizeName(name))
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return name
}
