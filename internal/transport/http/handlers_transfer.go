// Package httptransport is the thin HTTP layer over the transfer service.
// Handlers delegate to the orchestrator and the store without embedding
// business logic, so transport concerns stay isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crossrail/internal/platform/middleware"
	"crossrail/internal/rails"
	"crossrail/internal/transfer/models"
	"crossrail/internal/transfer/store"
	"crossrail/pkg/platform/httputil"
)

// Orchestrator is the transfer service surface the handlers call.
type Orchestrator interface {
	Execute(ctx context.Context, req models.TransferRequest) (*models.TransferOutcome, error)
}

// Handler wires transfer endpoints to the orchestrator and the outcome
// store.
type Handler struct {
	orchestrator Orchestrator
	recorder     store.Recorder
	logger       *slog.Logger
}

func NewHandler(orchestrator Orchestrator, recorder store.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		recorder:     recorder,
		logger:       logger,
	}
}

// Register mounts the transfer endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/transfers", h.HandleCreateTransfer)
	r.Get("/v1/transfers/{requestID}", h.HandleGetTransfer)
}

// CreateTransferRequest is the wire shape of a transfer submission.
type CreateTransferRequest struct {
	RequestID          string            `json:"request_id,omitempty"`
	Amount             string            `json:"amount"`
	Currency           string            `json:"currency"`
	SourceCountry      string            `json:"source_country"`
	DestinationCountry string            `json:"destination_country"`
	PreferredRail      string            `json:"preferred_rail,omitempty"`
	SmartRails         bool              `json:"smart_rails,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

// HandleCreateTransfer handles POST /v1/transfers. The saga runs to a
// terminal state within the request; callers needing async semantics poll
// GET with their request_id.
func (h *Handler) HandleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestID(ctx)
	start := time.Now()

	userID := middleware.UserID(ctx)
	if userID == "" {
		httputil.WriteError(w, httputil.Unauthorized("authentication required"))
		return
	}

	req, ok := httputil.DecodeJSON[CreateTransferRequest](w, r)
	if !ok {
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		httputil.WriteError(w, httputil.BadRequest("amount %q is not a decimal", req.Amount))
		return
	}

	var preferred rails.Rail
	if req.PreferredRail != "" {
		preferred, err = rails.ParseRail(req.PreferredRail)
		if err != nil {
			httputil.WriteError(w, httputil.BadRequest("unknown rail %q", req.PreferredRail))
			return
		}
	}

	// Caller-supplied request IDs make resubmission after a network failure
	// replay the same saga keys instead of double-charging.
	transferID := req.RequestID
	if transferID == "" {
		transferID = uuid.NewString()
	}

	outcome, err := h.orchestrator.Execute(ctx, models.TransferRequest{
		ID:                 transferID,
		RequesterID:        userID,
		Amount:             amount,
		Currency:           strings.ToUpper(strings.TrimSpace(req.Currency)),
		SourceCountry:      req.SourceCountry,
		DestinationCountry: req.DestinationCountry,
		PreferredRail:      preferred,
		SmartRails:         req.SmartRails,
		Metadata:           req.Metadata,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "transfer rejected",
			"request_id", requestID,
			"user_id", userID,
			"error", err)
		httputil.WriteError(w, httputil.BadRequest("%v", err))
		return
	}

	h.logger.InfoContext(ctx, "transfer executed",
		"request_id", requestID,
		"transfer_id", transferID,
		"user_id", userID,
		"status", outcome.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, outcome)
}

// HandleGetTransfer handles GET /v1/transfers/{requestID}.
func (h *Handler) HandleGetTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if middleware.UserID(ctx) == "" {
		httputil.WriteError(w, httputil.Unauthorized("authentication required"))
		return
	}

	outcome, err := h.recorder.Get(ctx, chi.URLParam(r, "requestID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcome)
}
