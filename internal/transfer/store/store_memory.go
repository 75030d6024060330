package store

import (
	"context"
	"sync"

	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/pkg/platform/sentinel"
)

// InMemoryStore keeps outcomes in process memory. It backs unit tests and
// single-node deployments without external storage.
type InMemoryStore struct {
	mu       sync.RWMutex
	steps    map[string][]models.StepResult
	outcomes map[string]*models.TransferOutcome
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *InMemoryStore {
	return &InMemoryStore{
		steps:    make(map[string][]models.StepResult),
		outcomes: make(map[string]*models.TransferOutcome),
	}
}

func (s *InMemoryStore) RecordStep(_ context.Context, requestID string, result models.StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[requestID] = append(s.steps[requestID], result)
	return nil
}

func (s *InMemoryStore) Finalize(_ context.Context, outcome *models.TransferOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.outcomes[outcome.RequestID]; ok && existing.Status.Terminal() {
		return sentinel.ErrConflict
	}

	copied := *outcome
	copied.Steps = append([]models.StepResult(nil), outcome.Steps...)
	copied.Errors = append([]string(nil), outcome.Errors...)
	s.outcomes[outcome.RequestID] = &copied
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, requestID string) (*models.TransferOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	copied := *outcome
	copied.Steps = append([]models.StepResult(nil), outcome.Steps...)
	copied.Errors = append([]string(nil), outcome.Errors...)
	return &copied, nil
}

func (s *InMemoryStore) ListPending(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, outcome := range s.outcomes {
		for _, step := range outcome.Steps {
			if step.Status == rails.StatusPending {
				ids = append(ids, id)
				break
			}
		}
	}
	return ids, nil
}

func (s *InMemoryStore) UpdateStepStatus(_ context.Context, requestID string, step models.Step, status rails.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i := range outcome.Steps {
		if outcome.Steps[i].Step == step {
			outcome.Steps[i].Status = status
			return nil
		}
	}
	return sentinel.ErrNotFound
}

var _ Recorder = (*InMemoryStore)(nil)
