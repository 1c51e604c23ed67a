//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"deedblock/internal/registration/models"
	"deedblock/internal/registration/store"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "registration_drafts"))
}

func (s *PostgresStoreSuite) TestSaveLoadRoundTrip() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())

	draft := models.NewDraft(owner)
	draft.SetState("Telangana")
	draft.SetDistrict("Rangareddy")
	draft.SetTaluka("Maheshwaram")
	draft.SetVillage("Tukkuguda")
	draft.SetTransactionType(id.TransactionSale)
	draft.SelectProperty("124/A", 1_000_000, 6.0)
	draft.Seller.SetAadhar("111122223333")
	draft.Seller.FingerprintVerified = true
	draft.Documents.SaleDeed = models.StoredSlot(models.FileRef{
		URL: "https://s/deed", Path: "o/documents/deed", Name: "deed.pdf",
	})
	s.Require().NoError(s.store.Save(ctx, draft))

	loaded, err := s.store.Load(ctx, owner)
	s.Require().NoError(err)
	s.Equal("Tukkuguda", loaded.Location.Village)
	s.Equal(draft.Fees, loaded.Fees)
	s.True(loaded.Seller.FingerprintVerified)
	s.True(loaded.Documents.SaleDeed.Filled())
}

func (s *PostgresStoreSuite) TestUpsertOneRowPerOwner() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())

	draft := models.NewDraft(owner)
	draft.SetPaymentID("1234567")
	s.Require().NoError(s.store.Save(ctx, draft))

	draft.SetPaymentID("7654321")
	s.Require().NoError(s.store.Save(ctx, draft))

	var count int
	s.Require().NoError(s.postgres.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registration_drafts WHERE owner_id = $1", uuid.UUID(owner)).Scan(&count))
	s.Equal(1, count)

	loaded, err := s.store.Load(ctx, owner)
	s.Require().NoError(err)
	s.Equal("7654321", loaded.PaymentID)
}

func (s *PostgresStoreSuite) TestLoadMissing() {
	_, err := s.store.Load(context.Background(), id.OwnerID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDeleteIdempotent() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())

	s.Require().NoError(s.store.Save(ctx, models.NewDraft(owner)))
	s.Require().NoError(s.store.Delete(ctx, owner))
	s.Require().NoError(s.store.Delete(ctx, owner))

	_, err := s.store.Load(ctx, owner)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
