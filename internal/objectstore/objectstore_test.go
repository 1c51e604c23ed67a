package objectstore_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedblock/internal/objectstore"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

const urlTTL = 7 * 24 * time.Hour

func newSigner() *objectstore.URLSigner {
	return objectstore.NewURLSigner("test-signing-key", "https://files.deedblock.local", urlTTL)
}

func testAdapters(t *testing.T) map[string]objectstore.Adapter {
	fsAdapter, err := objectstore.NewFS(t.TempDir(), newSigner())
	require.NoError(t, err)
	return map[string]objectstore.Adapter{
		"memory": objectstore.NewMemory(newSigner()),
		"fs":     fsAdapter,
	}
}

func TestAdapter_UploadDownloadResign(t *testing.T) {
	for name, adapter := range testAdapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			owner := id.OwnerID(uuid.New())

			ref, err := adapter.Upload(ctx, owner, objectstore.CategoryDocuments, "sale_deed", "deed.pdf", "application/pdf", []byte("deed bytes"))
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(ref.Path, owner.String()+"/documents/sale_deed_"))
			assert.Contains(t, ref.Path, "deed.pdf")
			assert.Contains(t, ref.URL, "token=")
			assert.Equal(t, "deed.pdf", ref.Name)

			data, err := adapter.Download(ctx, ref.Path)
			require.NoError(t, err)
			assert.Equal(t, []byte("deed bytes"), data)

			fresh, err := adapter.Resign(ctx, ref.Path)
			require.NoError(t, err)
			assert.Contains(t, fresh, "token=")
		})
	}
}

func TestAdapter_DeleteIdempotent(t *testing.T) {
	for name, adapter := range testAdapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			owner := id.OwnerID(uuid.New())

			ref, err := adapter.Upload(ctx, owner, objectstore.CategoryPhotos, "photo", "p.jpg", "image/jpeg", []byte{1, 2})
			require.NoError(t, err)

			require.NoError(t, adapter.Delete(ctx, ref.Path))
			require.NoError(t, adapter.Delete(ctx, ref.Path))

			_, err = adapter.Download(ctx, ref.Path)
			assert.ErrorIs(t, err, sentinel.ErrNotFound)
			_, err = adapter.Resign(ctx, ref.Path)
			assert.ErrorIs(t, err, sentinel.ErrNotFound)
		})
	}
}

func TestAdapter_ClearAllScopedToOwner(t *testing.T) {
	for name, adapter := range testAdapters(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			owner := id.OwnerID(uuid.New())
			other := id.OwnerID(uuid.New())

			_, err := adapter.Upload(ctx, owner, objectstore.CategoryDocuments, "ec", "ec.pdf", "application/pdf", []byte{1})
			require.NoError(t, err)
			mine, err := adapter.Upload(ctx, owner, objectstore.CategoryPhotos, "photo", "p.jpg", "image/jpeg", []byte{2})
			require.NoError(t, err)
			theirs, err := adapter.Upload(ctx, other, objectstore.CategoryDocuments, "khata", "k.pdf", "application/pdf", []byte{3})
			require.NoError(t, err)

			require.NoError(t, adapter.ClearAll(ctx, owner))

			_, err = adapter.Download(ctx, mine.Path)
			assert.ErrorIs(t, err, sentinel.ErrNotFound)
			_, err = adapter.Download(ctx, theirs.Path)
			assert.NoError(t, err, "other owners are untouched")
		})
	}
}

func TestURLSigner_RoundTrip(t *testing.T) {
	signer := newSigner()
	now := time.Now()

	signed, err := signer.Sign("owner/documents/deed_1_deed.pdf", now)
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)

	path, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "owner/documents/deed_1_deed.pdf", path)
}

func TestURLSigner_Expiry(t *testing.T) {
	signer := newSigner()
	signed, err := signer.Sign("owner/photos/p_1_p.jpg", time.Now().Add(-urlTTL-time.Minute))
	require.NoError(t, err)

	parsed, err := url.Parse(signed)
	require.NoError(t, err)
	_, err = signer.Verify(parsed.Query().Get("token"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestURLSigner_TamperedToken(t *testing.T) {
	signer := newSigner()
	other := objectstore.NewURLSigner("different-key", "https://files.deedblock.local", urlTTL)

	signed, err := other.Sign("owner/documents/deed_1_deed.pdf", time.Now())
	require.NoError(t, err)
	parsed, err := url.Parse(signed)
	require.NoError(t, err)

	_, err = signer.Verify(parsed.Query().Get("token"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestUpload_SameInstantKeysDoNotAlias(t *testing.T) {
	for name, adapter := range testAdapters(t) {
		t.Run(name, func(t *testing.T) {
			// A pinned request time forces identical timestamps; the paths
			// must still be distinct so neither upload shadows the other.
			at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
			ctx := requestcontext.WithTime(context.Background(), at)
			owner := id.OwnerID(uuid.New())

			first, err := adapter.Upload(ctx, owner, objectstore.CategoryPhotos, "photo", "a.jpg", "image/jpeg", []byte("first"))
			require.NoError(t, err)
			second, err := adapter.Upload(ctx, owner, objectstore.CategoryPhotos, "photo", "a.jpg", "image/jpeg", []byte("second"))
			require.NoError(t, err)
			require.NotEqual(t, first.Path, second.Path)

			require.NoError(t, adapter.Delete(ctx, first.Path))
			data, err := adapter.Download(ctx, second.Path)
			require.NoError(t, err)
			assert.Equal(t, []byte("second"), data)
		})
	}
}

func TestUpload_SanitizesName(t *testing.T) {
	adapter, err := objectstore.NewFS(t.TempDir(), newSigner())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	owner := id.OwnerID(uuid.New())

	ref, err := adapter.Upload(ctx, owner, objectstore.CategoryDocuments, "sale_deed", "../../etc passwd!.pdf", "application/pdf", []byte{1})
	require.NoError(t, err)
	assert.NotContains(t, ref.Path, "..")
	assert.NotContains(t, ref.Path, " ")
	assert.Equal(t, "../../etc passwd!.pdf", ref.Name, "display name keeps what the user typed")

	_, err = adapter.Download(ctx, ref.Path)
	assert.NoError(t, err)
}
