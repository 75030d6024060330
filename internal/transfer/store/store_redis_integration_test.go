//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/internal/transfer/store"
	"crossrail/pkg/platform/sentinel"
	"crossrail/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client, time.Hour)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) finalized(steps ...models.StepResult) *models.TransferOutcome {
	o := models.NewOutcome(uuid.NewString())
	for _, step := range steps {
		o.AppendStep(step)
	}
	s.Require().NoError(o.Finalize(models.TransferCompleted))
	return o
}

func (s *RedisStoreSuite) TestFinalizeRoundTrip() {
	ctx := context.Background()
	o := s.finalized(models.StepResult{Step: models.StepDebit, ProviderTxID: "po_1", Status: rails.StatusCompleted})

	s.Require().NoError(s.store.Finalize(ctx, o))

	got, err := s.store.Get(ctx, o.RequestID)
	s.Require().NoError(err)
	s.Equal(models.TransferCompleted, got.Status)
	s.Require().Len(got.Steps, 1)
	s.Equal("po_1", got.Steps[0].ProviderTxID)
}

func (s *RedisStoreSuite) TestFinalizeTwiceConflicts() {
	ctx := context.Background()
	o := s.finalized()

	s.Require().NoError(s.store.Finalize(ctx, o))
	s.ErrorIs(s.store.Finalize(ctx, o), sentinel.ErrConflict)
}

func (s *RedisStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestPendingSetMaintained() {
	ctx := context.Background()
	o := s.finalized(models.StepResult{Step: models.StepPayout, Status: rails.StatusPending})
	s.Require().NoError(s.store.Finalize(ctx, o))

	ids, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Equal([]string{o.RequestID}, ids)

	s.Require().NoError(s.store.UpdateStepStatus(ctx, o.RequestID, models.StepPayout, rails.StatusCompleted))

	ids, err = s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Empty(ids)
}

func (s *RedisStoreSuite) TestRecordStepKeepsOrder() {
	ctx := context.Background()
	requestID := uuid.NewString()

	s.Require().NoError(s.store.RecordStep(ctx, requestID,
		models.StepResult{Step: models.StepDebit, Status: rails.StatusCompleted}))
	s.Require().NoError(s.store.RecordStep(ctx, requestID,
		models.StepResult{Step: models.StepMint, Status: rails.StatusFailed}))

	entries, err := s.redis.Client.LRange(ctx, "xfer:steps:"+requestID, 0, -1).Result()
	s.Require().NoError(err)
	s.Len(entries, 2)
	s.Contains(entries[0], `"debit"`)
	s.Contains(entries[1], `"mint"`)
}
