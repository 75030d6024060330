// Package store records transfer outcomes. The orchestrator treats
// recording as fire-and-forget: a store failure is logged, never read back
// mid-saga, and never fails the transfer. Reads serve the API and the
// reconciliation worker after the fact.
package store

import (
	"context"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
)

// Recorder is the persistence collaborator the saga writes through.
type Recorder interface {
	// RecordStep appends one resolved step for a transfer.
	RecordStep(ctx context.Context, requestID string, result models.StepResult) error

	// Finalize stores the terminal outcome for a transfer.
	Finalize(ctx context.Context, outcome *models.TransferOutcome) error

	// Get returns the recorded outcome, sentinel.ErrNotFound if absent.
	Get(ctx context.Context, requestID string) (*models.TransferOutcome, error)

	// ListPending returns request IDs finalized while at least one step was
	// still pending at its provider, for the reconciliation worker.
	ListPending(ctx context.Context) ([]string, error)

	// UpdateStepStatus rewrites the recorded status of a step after a
	// reconciliation poll. It touches the record only, never the money.
	UpdateStepStatus(ctx context.Context, requestID string, step models.Step, status rails.Status) error
}
