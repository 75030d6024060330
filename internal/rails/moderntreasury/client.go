package moderntreasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crossrail/internal/rails"
)

// Client talks to the Modern Treasury REST API. Authentication is HTTP
// basic with the organization ID as username and the API key as password;
// idempotency travels in the Idempotency-Key header.
type Client struct {
	baseURL        string
	organizationID string
	apiKey         string
	hc             *http.Client
}

// ClientConfig configures the HTTP client.
type ClientConfig struct {
	BaseURL        string
	OrganizationID string
	APIKey         string
	Timeout        time.Duration
}

// NewClient builds the REST client. Timeout bounds each attempt; the retry
// policy above it owns the overall budget.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" || cfg.OrganizationID == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("modern treasury base URL, organization ID and API key are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		organizationID: cfg.OrganizationID,
		apiKey:         cfg.APIKey,
		hc:             &http.Client{Timeout: timeout},
	}, nil
}

type paymentOrderPayload struct {
	Type             string           `json:"type"`
	Direction        string           `json:"direction"`
	Amount           int64            `json:"amount"`
	Currency         string           `json:"currency"`
	ReceivingAccount receivingAccount `json:"receiving_account"`
}

type receivingAccount struct {
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	PartyName     string `json:"party_name"`
}

type paymentOrderEnvelope struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
	Error     *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CreatePaymentOrder submits one payment order.
func (c *Client) CreatePaymentOrder(ctx context.Context, order PaymentOrder) (*PaymentOrderResult, error) {
	op := rails.OpPush
	if order.Direction == "debit" {
		op = rails.OpPull
	}

	payload := paymentOrderPayload{
		Type:      string(order.Rail),
		Direction: order.Direction,
		Amount:    order.AmountCents,
		Currency:  strings.ToUpper(order.Currency),
		ReceivingAccount: receivingAccount{
			RoutingNumber: order.RoutingNumber,
			AccountNumber: order.AccountNumber,
			PartyName:     order.HolderName,
		},
	}

	var envelope paymentOrderEnvelope
	if err := c.do(ctx, op, http.MethodPost, "/api/payment_orders", order.IdempotencyKey, payload, &envelope); err != nil {
		return nil, err
	}
	return &PaymentOrderResult{ID: envelope.ID, Status: envelope.Status, SettledAt: envelope.SettledAt}, nil
}

// GetPaymentOrder fetches the current state of a payment order.
func (c *Client) GetPaymentOrder(ctx context.Context, id string) (*PaymentOrderResult, error) {
	var envelope paymentOrderEnvelope
	if err := c.do(ctx, rails.OpStatus, http.MethodGet, "/api/payment_orders/"+id, "", nil, &envelope); err != nil {
		return nil, err
	}
	return &PaymentOrderResult{ID: envelope.ID, Status: envelope.Status, SettledAt: envelope.SettledAt}, nil
}

func (c *Client) do(ctx context.Context, op rails.Operation, method, path, idempotencyKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.SetBasicAuth(c.organizationID, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return rails.WrapTransportError(providerName, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return rails.WrapTransportError(providerName, op, err)
	}

	if resp.StatusCode >= 400 {
		return c.classifyFailure(op, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return rails.NewRailError(rails.ErrorInternal, providerName, op, "malformed provider response", err)
	}
	return nil
}

// classifyFailure translates an error response into the normalized taxonomy,
// surfacing the provider's error code where it changes the category.
func (c *Client) classifyFailure(op rails.Operation, status int, raw []byte) error {
	var envelope paymentOrderEnvelope
	_ = json.Unmarshal(raw, &envelope)

	if envelope.Error != nil {
		switch envelope.Error.Code {
		case "insufficient_funds":
			return rails.NewRailError(rails.ErrorInsufficientFunds, providerName, op, envelope.Error.Message, nil)
		case "rail_unavailable", "payment_type_not_supported":
			return rails.NewRailError(rails.ErrorRailUnavailable, providerName, op, envelope.Error.Message, nil)
		}
		return rails.ClassifyHTTPStatus(providerName, op, status, envelope.Error.Message)
	}
	return rails.ClassifyHTTPStatus(providerName, op, status, "")
}
