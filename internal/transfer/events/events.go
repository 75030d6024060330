// Package events broadcasts transfer lifecycle changes. Publishing is
// fire-and-forget: a broker outage is logged and the saga proceeds, because
// the event stream is a notification surface, not the system of record.
package events

import (
	"context"
	"time"

	"crossrail/internal/transfer/models"
)

// Type names a lifecycle event.
type Type string

const (
	TypeStarted   Type = "transfer.started"
	TypeFinalized Type = "transfer.finalized"
)

// Event is the payload broadcast when a transfer's lifecycle changes.
type Event struct {
	EventID            string                `json:"event_id"`
	Type               Type                  `json:"type"`
	RequestID          string                `json:"request_id"`
	Status             models.TransferStatus `json:"status,omitempty"`
	Amount             string                `json:"amount"`
	Currency           string                `json:"currency"`
	SourceCountry      string                `json:"source_country"`
	DestinationCountry string                `json:"destination_country"`
	NeedsOperator      bool                  `json:"needs_operator,omitempty"`
	OccurredAt         time.Time             `json:"occurred_at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Noop discards events; used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
