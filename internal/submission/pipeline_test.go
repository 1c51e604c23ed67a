package submission_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedblock/internal/objectstore"
	"deedblock/internal/platform/metrics"
	"deedblock/internal/registration/models"
	"deedblock/internal/registration/service"
	"deedblock/internal/registration/store"
	"deedblock/internal/submission"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
)

type fixture struct {
	pipeline  *submission.Pipeline
	drafts    *service.Service
	store     *store.MemoryStore
	objects   *objectstore.MemoryAdapter
	content   *submission.MemoryContentStore
	finalized submission.Store
	owner     id.OwnerID
}

func newFixture(t *testing.T, finalized submission.Store, content submission.ContentStore) *fixture {
	t.Helper()
	st := store.NewMemory()
	objects := objectstore.NewMemory(objectstore.NewURLSigner("k", "https://files.test", 7*24*time.Hour))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	drafts := service.New(st, objects, m, logger, time.Millisecond)

	memContent, _ := content.(*submission.MemoryContentStore)
	f := &fixture{
		drafts:    drafts,
		store:     st,
		objects:   objects,
		content:   memContent,
		finalized: finalized,
		owner:     id.OwnerID(uuid.New()),
	}
	f.pipeline = submission.NewPipeline(drafts, objects, content, finalized,
		submission.NewMemoryGuard(), nil, m, logger)
	return f
}

func newHappyFixture(t *testing.T) *fixture {
	return newFixture(t, submission.NewMemoryStore(), submission.NewMemoryContentStore())
}

// completeDraft fills a draft that passes all three gates: two documents
// uploaded (stored form), two attached in memory, and two photos.
func (f *fixture) completeDraft(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	_, err := f.drafts.Mutate(ctx, f.owner, func(d *models.Draft) error {
		d.SetState("Telangana")
		d.SetDistrict("Rangareddy")
		d.SetTaluka("Maheshwaram")
		d.SetVillage("Tukkuguda")
		d.SetTransactionType(id.TransactionGift)
		d.SelectProperty("124/A", 1_000_000, 6.0)
		d.Seller.SetAadhar("111122223333")
		d.Seller.SetPhone("9876543210")
		d.Seller.OTPVerified = true
		d.Buyer.SetAadhar("444455556666")
		d.Buyer.SetPhone("9123456789")
		return nil
	})
	require.NoError(t, err)

	_, err = f.drafts.UploadDocument(ctx, f.owner, models.DocSaleDeed, "deed.pdf", "application/pdf", []byte("deed bytes"))
	require.NoError(t, err)
	_, err = f.drafts.UploadDocument(ctx, f.owner, models.DocEC, "ec.pdf", "application/pdf", []byte("ec bytes"))
	require.NoError(t, err)

	_, err = f.drafts.Mutate(ctx, f.owner, func(d *models.Draft) error {
		d.Documents.Khata = models.InMemorySlot("khata.pdf", "application/pdf", []byte("khata bytes"))
		d.Documents.TaxReceipt = models.InMemorySlot("tax.pdf", "application/pdf", []byte("tax bytes"))
		return d.AddPhotos([]models.FileSlot{
			models.InMemorySlot("front.jpg", "image/jpeg", []byte("front")),
			models.InMemorySlot("back.jpg", "image/jpeg", []byte("back")),
		})
	})
	require.NoError(t, err)

	_, err = f.drafts.Mutate(ctx, f.owner, func(d *models.Draft) error {
		d.SetPaymentID("1234567")
		d.PaymentIDVerified = true
		d.DeclarationChecked = true
		return nil
	})
	require.NoError(t, err)
}

func TestSubmit_HappyPath(t *testing.T) {
	f := newHappyFixture(t)
	f.completeDraft(t)
	ctx := context.Background()

	reg, err := f.pipeline.Submit(ctx, f.owner)
	require.NoError(t, err)

	assert.False(t, reg.ID.IsNil())
	assert.Equal(t, f.owner, reg.OwnerID)
	assert.Equal(t, "Tukkuguda", reg.Manifest.Village)
	assert.Equal(t, "124/A", reg.Manifest.PropertyNumber)
	assert.Equal(t, int64(62500), reg.Manifest.Fees.TotalPayable)
	assert.Equal(t, "1234567", reg.Manifest.PaymentID)
	assert.True(t, reg.Manifest.Seller.OTPVerified)

	require.Len(t, reg.Manifest.Documents, 4)
	deed := reg.Manifest.Documents["sale_deed"]
	assert.Equal(t, submission.ContentHash([]byte("deed bytes")), deed.Hash)
	assert.Equal(t, "deed.pdf", deed.Name)
	assert.Equal(t, int64(len("deed bytes")), deed.Size)
	assert.Equal(t, "application/pdf", deed.ContentType, "mime type survives the draft-storage round trip")

	blob, ok := f.content.Get(deed.Hash)
	require.True(t, ok)
	assert.Equal(t, []byte("deed bytes"), blob)

	// The manifests themselves are content-addressed alongside the files.
	assert.Equal(t, submission.StatusSubmitted, reg.Status)
	docsBlob, ok := f.content.Get(reg.DocumentManifestRef)
	require.True(t, ok, "document manifest is stored by hash")
	var docsManifest map[string]submission.ManifestFile
	require.NoError(t, json.Unmarshal(docsBlob, &docsManifest))
	assert.Equal(t, reg.Manifest.Documents, docsManifest)

	photosBlob, ok := f.content.Get(reg.PhotoManifestRef)
	require.True(t, ok, "photo manifest is stored by hash")
	var photosManifest []submission.ManifestFile
	require.NoError(t, json.Unmarshal(photosBlob, &photosManifest))
	assert.Equal(t, reg.Manifest.Photos, photosManifest)

	// Photo order survives.
	require.Len(t, reg.Manifest.Photos, 2)
	assert.Equal(t, submission.ContentHash([]byte("front")), reg.Manifest.Photos[0].Hash)
	assert.Equal(t, submission.ContentHash([]byte("back")), reg.Manifest.Photos[1].Hash)

	// Finalize-then-clear: the record is durable, the draft is gone.
	stored, err := f.finalized.Get(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, reg.Manifest, stored.Manifest)
	_, err = f.store.Load(ctx, f.owner)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.Zero(t, f.objects.Len(), "draft-phase objects are cleared")
}

func TestSubmit_GateFailureLeavesDraftIntact(t *testing.T) {
	f := newHappyFixture(t)
	f.completeDraft(t)
	ctx := context.Background()

	_, err := f.drafts.Mutate(ctx, f.owner, func(d *models.Draft) error {
		d.DeclarationChecked = false
		return nil
	})
	require.NoError(t, err)

	_, err = f.pipeline.Submit(ctx, f.owner)
	require.Error(t, err)
	assert.Equal(t, "declaration", dErrors.FieldOf(err))

	saved, err := f.store.Load(ctx, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "1234567", saved.PaymentID)
}

type failingStore struct{}

func (failingStore) Save(context.Context, *submission.Registration) error {
	return errors.New("registry down")
}
func (failingStore) Get(context.Context, id.SubmissionID) (*submission.Registration, error) {
	return nil, sentinel.ErrNotFound
}
func (failingStore) ListByOwner(context.Context, id.OwnerID) ([]*submission.Registration, error) {
	return nil, nil
}

func TestSubmit_FinalizeFailureLeavesDraftIntact(t *testing.T) {
	f := newFixture(t, failingStore{}, submission.NewMemoryContentStore())
	f.completeDraft(t)
	ctx := context.Background()

	_, err := f.pipeline.Submit(ctx, f.owner)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))

	saved, err := f.store.Load(ctx, f.owner)
	require.NoError(t, err)
	assert.True(t, saved.Documents.SaleDeed.Filled(), "nothing was torn down")
	assert.NotZero(t, f.objects.Len(), "draft-phase objects still exist")
}

func TestSubmit_MissingStoredObjectNamesSlot(t *testing.T) {
	f := newHappyFixture(t)
	f.completeDraft(t)
	ctx := context.Background()

	// Break the EC document's backing object after the draft references it.
	saved, err := f.store.Load(ctx, f.owner)
	require.NoError(t, err)
	path, ok := saved.Documents.EC.StoredPath()
	require.True(t, ok)
	require.NoError(t, f.objects.Delete(ctx, path))

	// The session caches the hydrated draft, so the broken ref is still
	// attached when the pipeline resolves it.
	_, err = f.pipeline.Submit(ctx, f.owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ec")

	_, err = f.store.Load(ctx, f.owner)
	assert.NoError(t, err, "the draft survives")
}

// blockingContentStore parks Put until released, to hold a submission open.
type blockingContentStore struct {
	inner   submission.ContentStore
	release chan struct{}
	once    sync.Once
	entered chan struct{}
}

func (b *blockingContentStore) Put(ctx context.Context, data []byte) (string, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.inner.Put(ctx, data)
}

func TestSubmit_SingleFlightPerOwner(t *testing.T) {
	blocking := &blockingContentStore{
		inner:   submission.NewMemoryContentStore(),
		release: make(chan struct{}),
		entered: make(chan struct{}),
	}
	f := newFixture(t, submission.NewMemoryStore(), blocking)
	f.completeDraft(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := f.pipeline.Submit(ctx, f.owner)
		done <- err
	}()

	<-blocking.entered
	_, err := f.pipeline.Submit(ctx, f.owner)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict), "the second submission is rejected while the first runs")

	close(blocking.release)
	require.NoError(t, <-done)

	// With the first finished, the guard is released; the draft is gone
	// though, so a resubmission fails the gates rather than the guard.
	_, err = f.pipeline.Submit(ctx, f.owner)
	require.Error(t, err)
	assert.False(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestSubmit_ContentStoreDedupes(t *testing.T) {
	f := newHappyFixture(t)
	f.completeDraft(t)
	ctx := context.Background()

	// Two photos with identical bytes address the same blob.
	_, err := f.drafts.Mutate(ctx, f.owner, func(d *models.Draft) error {
		return d.AddPhotos([]models.FileSlot{
			models.InMemorySlot("dup1.jpg", "image/jpeg", []byte("same")),
			models.InMemorySlot("dup2.jpg", "image/jpeg", []byte("same")),
		})
	})
	require.NoError(t, err)

	reg, err := f.pipeline.Submit(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, reg.Manifest.Photos, 4)
	assert.Equal(t, reg.Manifest.Photos[2].Hash, reg.Manifest.Photos[3].Hash)
	assert.Equal(t, 7, f.content.Len(), "6 distinct blobs for 8 files less one duplicate")
}
