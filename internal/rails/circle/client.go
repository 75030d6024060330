package circle

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

// Client talks to the Circle REST API with bearer-token authentication.
// Idempotency keys travel in the request body, which is how Circle dedupes.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// ClientConfig configures the Circle client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient builds the REST client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("circle base URL and API key are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		hc:      &http.Client{Timeout: timeout},
	}, nil
}

type mintPayload struct {
	IdempotencyKey string       `json:"idempotencyKey"`
	Amount         amountObject `json:"amount"`
	Destination    chainTarget  `json:"destination"`
}

type redemptionPayload struct {
	IdempotencyKey string       `json:"idempotencyKey"`
	Amount         amountObject `json:"amount"`
	Destination    acctTarget   `json:"destination"`
}

type amountObject struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type chainTarget struct {
	Type  string `json:"type"`
	Chain string `json:"chain"`
}

type acctTarget struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type conversionEnvelope struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CreateMint submits a fiat-to-stablecoin conversion.
func (c *Client) CreateMint(ctx context.Context, mint Mint) (*Conversion, error) {
	payload := mintPayload{
		IdempotencyKey: mint.IdempotencyKey,
		Amount:         amountObject{Amount: mint.Amount, Currency: mint.Currency},
		Destination:    chainTarget{Type: "blockchain", Chain: mint.Chain},
	}
	return c.post(ctx, rails.OpMint, "/v1/mints", payload)
}

// CreateRedemption submits a stablecoin-to-fiat conversion.
func (c *Client) CreateRedemption(ctx context.Context, redemption Redemption) (*Conversion, error) {
	payload := redemptionPayload{
		IdempotencyKey: redemption.IdempotencyKey,
		Amount:         amountObject{Amount: redemption.Amount, Currency: redemption.Currency},
		Destination:    acctTarget{Type: "wallet", ID: redemption.DestinationAccountID},
	}
	return c.post(ctx, rails.OpRedeem, "/v1/redemptions", payload)
}

// GetConversion fetches the state of a mint or redemption.
func (c *Client) GetConversion(ctx context.Context, id string) (*Conversion, error) {
	return c.request(ctx, rails.OpStatus, http.MethodGet, "/v1/conversions/"+id, nil)
}

func (c *Client) post(ctx context.Context, op rails.Operation, path string, payload any) (*Conversion, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	return c.request(ctx, op, http.MethodPost, path, body)
}

func (c *Client) request(ctx context.Context, op rails.Operation, method, path string, body []byte) (*Conversion, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, rails.WrapTransportError(providerName, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, rails.WrapTransportError(providerName, op, err)
	}

	var env conversionEnvelope
	if resp.StatusCode >= 400 {
		_ = json.Unmarshal(raw, &env)
		return nil, rails.ClassifyHTTPStatus(providerName, op, resp.StatusCode, env.Message)
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, rails.NewRailError(rails.ErrorInternal, providerName, op, "malformed provider response", err)
	}
	return &Conversion{ID: env.Data.ID, Status: env.Data.Status}, nil
}
