// Package models holds the transfer saga's data shapes. A TransferOutcome is
// append-only: steps are added as they resolve and the status is finalized
// exactly once, so a caller holding an outcome is always looking at the full
// history of what happened to the money.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"crossrail/internal/rails"
)

// Step names one money-movement stage of a transfer saga.
type Step string

const (
	StepDebit  Step = "debit"
	StepMint   Step = "mint"
	StepRedeem Step = "redeem"
	StepPayout Step = "payout"

	// StepRefund is the compensation push back to the source account.
	StepRefund Step = "refund"
)

// TransferStatus is the saga-level lifecycle vocabulary.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"

	// TransferRefunded means the debit was compensated back to the source.
	TransferRefunded TransferStatus = "refunded"

	// TransferIndeterminate means value is stranded in the bridge asset and
	// an operator must act; no automatic recovery is attempted.
	TransferIndeterminate TransferStatus = "indeterminate_needs_review"

	// TransferPayoutFailed means fiat reached the destination custodial
	// account but not the named recipient; flagged for manual payout retry.
	TransferPayoutFailed TransferStatus = "redemption_complete_payout_failed"
)

// Terminal reports whether the status is a final state.
func (s TransferStatus) Terminal() bool {
	return s != TransferPending && s != ""
}

// NeedsOperator reports whether the status requires manual intervention, as
// opposed to failed/refunded which are self-resolving.
func (s TransferStatus) NeedsOperator() bool {
	return s == TransferIndeterminate || s == TransferPayoutFailed
}

// TransferRequest describes one requested movement of money. Immutable once
// created.
type TransferRequest struct {
	ID                 string            `json:"id"`
	RequesterID        string            `json:"requester_id"`
	Amount             decimal.Decimal   `json:"amount"`
	Currency           string            `json:"currency"`
	SourceCountry      string            `json:"source_country"`
	DestinationCountry string            `json:"destination_country"`
	PreferredRail      rails.Rail        `json:"preferred_rail,omitempty"`
	SmartRails         bool              `json:"smart_rails,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// Validate enforces the request invariants before any saga work starts.
func (r TransferRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("request id is required")
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return fmt.Errorf("requester id is required")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", r.Amount)
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	if strings.TrimSpace(r.SourceCountry) == "" || strings.TrimSpace(r.DestinationCountry) == "" {
		return fmt.Errorf("source and destination countries are required")
	}
	return nil
}

// Domestic reports whether both legs are on the same country's rails.
func (r TransferRequest) Domestic() bool {
	return strings.EqualFold(strings.TrimSpace(r.SourceCountry), strings.TrimSpace(r.DestinationCountry))
}

// StepResult records the outcome of one saga step. Produced once per step
// and never mutated; a retried step appends a new result under the same
// idempotency key rather than rewriting history.
type StepResult struct {
	Step         Step              `json:"step"`
	ProviderTxID string            `json:"provider_tx_id,omitempty"`
	Provider     string            `json:"provider,omitempty"`
	Rail         rails.Rail        `json:"rail,omitempty"`
	Status       rails.Status      `json:"status"`
	SettledAt    *time.Time        `json:"settled_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Succeeded reports whether the step reached a non-failed provider state.
func (s StepResult) Succeeded() bool {
	return s.Status == rails.StatusCompleted || s.Status == rails.StatusPending
}

// TransferOutcome is the append-only record of one saga invocation.
type TransferOutcome struct {
	RequestID   string         `json:"request_id"`
	Status      TransferStatus `json:"status"`
	Steps       []StepResult   `json:"steps"`
	Errors      []string       `json:"errors,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	FinalizedAt *time.Time     `json:"finalized_at,omitempty"`
}

// NewOutcome creates a pending outcome at saga start.
func NewOutcome(requestID string) *TransferOutcome {
	return &TransferOutcome{
		RequestID: requestID,
		Status:    TransferPending,
		StartedAt: time.Now().UTC(),
	}
}

// AppendStep records a resolved step.
func (o *TransferOutcome) AppendStep(result StepResult) {
	o.Steps = append(o.Steps, result)
}

// AppendError records a saga-level error message in order.
func (o *TransferOutcome) AppendError(err error) {
	if err == nil {
		return
	}
	o.Errors = append(o.Errors, err.Error())
}

// Finalize sets the terminal status exactly once.
func (o *TransferOutcome) Finalize(status TransferStatus) error {
	if o.FinalizedAt != nil {
		return fmt.Errorf("outcome for %s already finalized as %s", o.RequestID, o.Status)
	}
	if !status.Terminal() {
		return fmt.Errorf("cannot finalize %s with non-terminal status %s", o.RequestID, status)
	}
	now := time.Now().UTC()
	o.Status = status
	o.FinalizedAt = &now
	return nil
}

// ResultFor returns the first recorded result for a step, if any.
func (o *TransferOutcome) ResultFor(step Step) (StepResult, bool) {
	for _, s := range o.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}

// StepSucceeded reports whether a step was recorded with a non-failed status.
func (o *TransferOutcome) StepSucceeded(step Step) bool {
	res, ok := o.ResultFor(step)
	return ok && res.Succeeded()
}
