package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedblock/internal/registration/models"
	"deedblock/internal/registration/store"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

func TestMemoryStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	owner := id.OwnerID(uuid.New())

	_, err := s.Load(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	draft := models.NewDraft(owner)
	draft.SetState("Telangana")
	draft.Seller.SetAadhar("111122223333")
	require.NoError(t, s.Save(ctx, draft))

	loaded, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, loaded.OwnerID)
	assert.Equal(t, "Telangana", loaded.Location.State)
	assert.Equal(t, "111122223333", loaded.Seller.Aadhar)

	require.NoError(t, s.Delete(ctx, owner))
	_, err = s.Load(ctx, owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	// Deleting again is fine.
	require.NoError(t, s.Delete(ctx, owner))
}

func TestMemoryStore_SaveReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	owner := id.OwnerID(uuid.New())

	draft := models.NewDraft(owner)
	draft.SetPaymentID("1234567")
	require.NoError(t, s.Save(ctx, draft))

	draft.SetPaymentID("")
	require.NoError(t, s.Save(ctx, draft))

	loaded, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, loaded.PaymentID, "save replaces, never merges")
}

func TestMemoryStore_InMemoryBytesDoNotSurvive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	owner := id.OwnerID(uuid.New())

	draft := models.NewDraft(owner)
	draft.Documents.SaleDeed = models.InMemorySlot("deed.pdf", "application/pdf", []byte("bytes"))
	draft.Documents.EC = models.StoredSlot(models.FileRef{URL: "https://s/ec", Path: "o/documents/ec", Name: "ec.pdf"})
	require.NoError(t, s.Save(ctx, draft))

	loaded, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, models.SlotEmpty, loaded.Documents.SaleDeed.Kind)
	assert.True(t, loaded.Documents.EC.Filled(), "stored references do survive")
}

func TestMemoryStore_SaveDoesNotMutateDraft(t *testing.T) {
	s := store.NewMemory()
	owner := id.OwnerID(uuid.New())
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at.Add(time.Hour))

	draft := models.NewDraft(owner)
	draft.UpdatedAt = at
	require.NoError(t, s.Save(ctx, draft))
	assert.True(t, draft.UpdatedAt.Equal(at), "the store takes the draft as-is")

	loaded, err := s.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, loaded.UpdatedAt.Equal(at))
}
