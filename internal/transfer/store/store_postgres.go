package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/pkg/platform/sentinel"
)

// PostgresStore is the durable recorder. Steps are written individually as
// they resolve so a crash mid-saga leaves a partial audit trail an operator
// can reason from; the finalized outcome row is written once.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed recorder.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the recorder tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transfer_steps (
			request_id     TEXT NOT NULL,
			step           TEXT NOT NULL,
			provider_tx_id TEXT,
			provider       TEXT,
			rail           TEXT,
			status         TEXT NOT NULL,
			settled_at     TIMESTAMPTZ,
			metadata       JSONB,
			recorded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS transfer_steps_request_idx ON transfer_steps (request_id);

		CREATE TABLE IF NOT EXISTS transfer_outcomes (
			request_id   TEXT PRIMARY KEY,
			status       TEXT NOT NULL,
			steps        JSONB NOT NULL,
			errors       JSONB,
			started_at   TIMESTAMPTZ NOT NULL,
			finalized_at TIMESTAMPTZ
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate recorder schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordStep(ctx context.Context, requestID string, result models.StepResult) error {
	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		return fmt.Errorf("encode step metadata: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO transfer_steps (request_id, step, provider_tx_id, provider, rail, status, settled_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		requestID, result.Step, result.ProviderTxID, result.Provider, result.Rail, result.Status, result.SettledAt, metadata,
	)
	if err != nil {
		return fmt.Errorf("record step %s for %s: %w", result.Step, requestID, err)
	}
	return nil
}

func (s *PostgresStore) Finalize(ctx context.Context, outcome *models.TransferOutcome) error {
	steps, err := json.Marshal(outcome.Steps)
	if err != nil {
		return fmt.Errorf("encode outcome steps: %w", err)
	}
	errs, err := json.Marshal(outcome.Errors)
	if err != nil {
		return fmt.Errorf("encode outcome errors: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO transfer_outcomes (request_id, status, steps, errors, started_at, finalized_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		outcome.RequestID, outcome.Status, steps, errs, outcome.StartedAt, outcome.FinalizedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("outcome %s: %w", outcome.RequestID, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("finalize outcome %s: %w", outcome.RequestID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID string) (*models.TransferOutcome, error) {
	var (
		outcome models.TransferOutcome
		steps   []byte
		errs    []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT request_id, status, steps, errors, started_at, finalized_at
		FROM transfer_outcomes WHERE request_id = $1`,
		requestID,
	).Scan(&outcome.RequestID, &outcome.Status, &steps, &errs, &outcome.StartedAt, &outcome.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("outcome %s: %w", requestID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get outcome %s: %w", requestID, err)
	}

	if err := json.Unmarshal(steps, &outcome.Steps); err != nil {
		return nil, fmt.Errorf("decode outcome steps: %w", err)
	}
	if len(errs) > 0 {
		if err := json.Unmarshal(errs, &outcome.Errors); err != nil {
			return nil, fmt.Errorf("decode outcome errors: %w", err)
		}
	}
	return &outcome, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT request_id FROM transfer_outcomes
		WHERE steps @> '[{"status":"pending"}]'`)
	if err != nil {
		return nil, fmt.Errorf("list pending outcomes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending outcome: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) UpdateStepStatus(ctx context.Context, requestID string, step models.Step, status rails.Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE transfer_outcomes
		SET steps = (
			SELECT jsonb_agg(
				CASE WHEN elem->>'step' = $2 THEN jsonb_set(elem, '{status}', to_jsonb($3::text)) ELSE elem END
			)
			FROM jsonb_array_elements(steps) elem
		)
		WHERE request_id = $1`,
		requestID, step, status,
	)
	if err != nil {
		return fmt.Errorf("update step %s for %s: %w", step, requestID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outcome %s: %w", requestID, sentinel.ErrNotFound)
	}
	return nil
}

var _ Recorder = (*PostgresStore)(nil)
