//go:build integration

package submission_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"deedblock/internal/submission"
	id "deedblock/pkg/domain"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/testutil/containers"
)

type PostgresFinalizedSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *submission.PostgresStore
}

func TestPostgresFinalizedSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresFinalizedSuite))
}

func (s *PostgresFinalizedSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = submission.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresFinalizedSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "registrations"))
}

func (s *PostgresFinalizedSuite) TestSaveGetRoundTrip() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())
	reg := newRegistration(owner)

	s.Require().NoError(s.store.Save(ctx, reg))

	got, err := s.store.Get(ctx, reg.ID)
	s.Require().NoError(err)
	s.Equal(reg.Manifest, got.Manifest)
	s.Equal(owner, got.OwnerID)
	s.Equal(reg.DocumentManifestRef, got.DocumentManifestRef)
	s.Equal(reg.PhotoManifestRef, got.PhotoManifestRef)
	s.Equal(submission.StatusSubmitted, got.Status)
	s.True(reg.SubmittedAt.Equal(got.SubmittedAt))
}

func (s *PostgresFinalizedSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), id.SubmissionID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresFinalizedSuite) TestListByOwnerOrdersNewestFirst() {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())

	older := newRegistration(owner)
	newer := newRegistration(owner)
	newer.SubmittedAt = older.SubmittedAt.Add(1)

	s.Require().NoError(s.store.Save(ctx, older))
	s.Require().NoError(s.store.Save(ctx, newer))
	s.Require().NoError(s.store.Save(ctx, newRegistration(id.OwnerID(uuid.New()))))

	mine, err := s.store.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal(newer.ID, mine[0].ID)
	s.Equal(older.ID, mine[1].ID)
}
