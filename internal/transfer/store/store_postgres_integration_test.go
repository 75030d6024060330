//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/internal/transfer/store"
	"crossrail/pkg/platform/sentinel"
	"crossrail/pkg/testutil/containers"
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
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "transfer_steps", "transfer_outcomes")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newOutcome(steps ...models.StepResult) *models.TransferOutcome {
	o := models.NewOutcome(uuid.NewString())
	for _, step := range steps {
		o.AppendStep(step)
	}
	s.Require().NoError(o.Finalize(models.TransferCompleted))
	return o
}

func (s *PostgresStoreSuite) TestFinalizeRoundTrip() {
	ctx := context.Background()
	o := s.newOutcome(
		models.StepResult{Step: models.StepDebit, ProviderTxID: "po_1", Provider: "modern_treasury", Rail: rails.RailACH, Status: rails.StatusCompleted},
		models.StepResult{Step: models.StepPayout, ProviderTxID: "payout_1", Provider: "rapyd", Rail: rails.RailLocal, Status: rails.StatusCompleted},
	)

	s.Require().NoError(s.store.Finalize(ctx, o))

	got, err := s.store.Get(ctx, o.RequestID)
	s.Require().NoError(err)
	s.Equal(models.TransferCompleted, got.Status)
	s.Require().Len(got.Steps, 2)
	s.Equal("po_1", got.Steps[0].ProviderTxID)
	s.NotNil(got.FinalizedAt)
}

func (s *PostgresStoreSuite) TestFinalizeTwiceConflicts() {
	ctx := context.Background()
	o := s.newOutcome()

	s.Require().NoError(s.store.Finalize(ctx, o))
	err := s.store.Finalize(ctx, o)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRecordStepAppends() {
	ctx := context.Background()
	requestID := uuid.NewString()

	s.Require().NoError(s.store.RecordStep(ctx, requestID,
		models.StepResult{Step: models.StepDebit, Status: rails.StatusCompleted}))
	s.Require().NoError(s.store.RecordStep(ctx, requestID,
		models.StepResult{Step: models.StepMint, Status: rails.StatusFailed}))

	var count int
	err := s.postgres.Pool.QueryRow(ctx,
		"SELECT count(*) FROM transfer_steps WHERE request_id = $1", requestID).Scan(&count)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestPendingReconciliation() {
	ctx := context.Background()
	o := s.newOutcome(models.StepResult{Step: models.StepPayout, Status: rails.StatusPending})
	s.Require().NoError(s.store.Finalize(ctx, o))

	ids, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Equal([]string{o.RequestID}, ids)

	s.Require().NoError(s.store.UpdateStepStatus(ctx, o.RequestID, models.StepPayout, rails.StatusCompleted))

	ids, err = s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Empty(ids)

	got, err := s.store.Get(ctx, o.RequestID)
	s.Require().NoError(err)
	s.Equal(rails.StatusCompleted, got.Steps[0].Status)
}
