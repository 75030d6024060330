package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/pkg/platform/sentinel"
)

const (
	outcomeKeyPrefix = "xfer:outcome:"
	stepsKeyPrefix   = "xfer:steps:"
	pendingSetKey    = "xfer:pending"
)

// RedisStore is a recorder for deployments that want low-latency outcome
// reads without a relational database. Records expire after the retention
// TTL; durable audit belongs to the Postgres recorder.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed recorder with the given retention.
func NewRedis(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl == 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) RecordStep(ctx context.Context, requestID string, result models.StepResult) error {
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode step result: %w", err)
	}
	key := stepsKeyPrefix + requestID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, encoded)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record step %s for %s: %w", result.Step, requestID, err)
	}
	return nil
}

func (s *RedisStore) Finalize(ctx context.Context, outcome *models.TransferOutcome) error {
	encoded, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	ok, err := s.client.SetNX(ctx, outcomeKeyPrefix+outcome.RequestID, encoded, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("finalize outcome %s: %w", outcome.RequestID, err)
	}
	if !ok {
		return fmt.Errorf("outcome %s: %w", outcome.RequestID, sentinel.ErrConflict)
	}

	if hasPendingStep(outcome) {
		if err := s.client.SAdd(ctx, pendingSetKey, outcome.RequestID).Err(); err != nil {
			return fmt.Errorf("track pending outcome %s: %w", outcome.RequestID, err)
		}
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requestID string) (*models.TransferOutcome, error) {
	raw, err := s.client.Get(ctx, outcomeKeyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("outcome %s: %w", requestID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome %s: %w", requestID, err)
	}

	var outcome models.TransferOutcome
	if err := json.Unmarshal(raw, &outcome); err != nil {
		return nil, fmt.Errorf("decode outcome %s: %w", requestID, err)
	}
	return &outcome, nil
}

func (s *RedisStore) ListPending(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, pendingSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list pending outcomes: %w", err)
	}
	return ids, nil
}

func (s *RedisStore) UpdateStepStatus(ctx context.Context, requestID string, step models.Step, status rails.Status) error {
	outcome, err := s.Get(ctx, requestID)
	if err != nil {
		return err
	}

	updated := false
	for i := range outcome.Steps {
		if outcome.Steps[i].Step == step {
			outcome.Steps[i].Status = status
			updated = true
			break
		}
	}
	if !updated {
		return fmt.Errorf("step %s of %s: %w", step, requestID, sentinel.ErrNotFound)
	}

	encoded, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if err := s.client.Set(ctx, outcomeKeyPrefix+requestID, encoded, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update outcome %s: %w", requestID, err)
	}

	if !hasPendingStep(outcome) {
		if err := s.client.SRem(ctx, pendingSetKey, requestID).Err(); err != nil {
			return fmt.Errorf("untrack pending outcome %s: %w", requestID, err)
		}
	}
	return nil
}

func hasPendingStep(outcome *models.TransferOutcome) bool {
	for _, step := range outcome.Steps {
		if step.Status == rails.StatusPending {
			return true
		}
	}
	return false
}

var _ Recorder = (*RedisStore)(nil)
