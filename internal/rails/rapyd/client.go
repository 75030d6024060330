package rapyd

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crossrail/internal/rails"
)

// Client talks to the Rapyd REST API. Every request is HMAC-signed: the
// signature covers method, path, a random salt, a unix timestamp, the access
// key, the secret and the exact body bytes, hex-encoded then base64'd, per
// Rapyd's scheme.
type Client struct {
	baseURL   string
	accessKey string
	secretKey string
	hc        *http.Client
	now       func() time.Time
	salt      func() string
}

// ClientConfig configures the Rapyd client.
type ClientConfig struct {
	BaseURL   string
	AccessKey string
	SecretKey string
	Timeout   time.Duration
}

// NewClient builds the REST client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("rapyd base URL, access key and secret key are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		accessKey: cfg.AccessKey,
		secretKey: cfg.SecretKey,
		hc:        &http.Client{Timeout: timeout},
		now:       time.Now,
		salt:      randomSalt,
	}, nil
}

type paymentPayload struct {
	Amount        int64         `json:"amount"`
	Currency      string        `json:"currency"`
	PaymentMethod paymentMethod `json:"payment_method"`
	Metadata      metadata      `json:"metadata"`
}

type payoutPayload struct {
	PayoutAmount       int64       `json:"payout_amount"`
	PayoutCurrency     string      `json:"payout_currency"`
	Beneficiary        beneficiary `json:"beneficiary"`
	BeneficiaryCountry string      `json:"beneficiary_country"`
	Metadata           metadata    `json:"metadata"`
}

type paymentMethod struct {
	Type   string            `json:"type"`
	Fields map[string]string `json:"fields"`
}

type beneficiary struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code,omitempty"`
}

type metadata struct {
	IdempotencyKey string `json:"idempotency_key"`
}

type envelope struct {
	Status struct {
		Status    string `json:"status"`
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	} `json:"status"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// CreatePayment collects funds from a local bank account.
func (c *Client) CreatePayment(ctx context.Context, payment Payment) (*TransactionEnvelope, error) {
	payload := paymentPayload{
		Amount:   payment.AmountMinor,
		Currency: payment.Currency,
		PaymentMethod: paymentMethod{
			Type: strings.ToLower(payment.Country) + "_bank_transfer",
			Fields: map[string]string{
				"account_number": payment.AccountNumber,
				"bank_code":      payment.BankCode,
				"holder_name":    payment.HolderName,
			},
		},
		Metadata: metadata{IdempotencyKey: payment.IdempotencyKey},
	}
	return c.post(ctx, rails.OpPull, "/v1/payments", payment.IdempotencyKey, payload)
}

// CreatePayout disburses funds to a local bank account.
func (c *Client) CreatePayout(ctx context.Context, payout Payout) (*TransactionEnvelope, error) {
	payload := payoutPayload{
		PayoutAmount:       payout.AmountMinor,
		PayoutCurrency:     payout.Currency,
		BeneficiaryCountry: payout.Country,
		Beneficiary: beneficiary{
			Name:          payout.HolderName,
			AccountNumber: payout.AccountNumber,
			BankCode:      payout.BankCode,
		},
		Metadata: metadata{IdempotencyKey: payout.IdempotencyKey},
	}
	return c.post(ctx, rails.OpPush, "/v1/payouts", payout.IdempotencyKey, payload)
}

// GetTransaction fetches a prior payment or payout.
func (c *Client) GetTransaction(ctx context.Context, id string) (*TransactionEnvelope, error) {
	return c.request(ctx, rails.OpStatus, http.MethodGet, "/v1/payouts/"+id, "", nil)
}

func (c *Client) post(ctx context.Context, op rails.Operation, path, idempotencyKey string, payload any) (*TransactionEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	return c.request(ctx, op, http.MethodPost, path, idempotencyKey, body)
}

func (c *Client) request(ctx context.Context, op rails.Operation, method, path, idempotencyKey string, body []byte) (*TransactionEnvelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}

	salt := c.salt()
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("access_key", c.accessKey)
	req.Header.Set("salt", salt)
	req.Header.Set("timestamp", timestamp)
	req.Header.Set("signature", c.sign(method, path, salt, timestamp, body))
	if idempotencyKey != "" {
		req.Header.Set("idempotency", idempotencyKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, rails.WrapTransportError(providerName, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, rails.WrapTransportError(providerName, op, err)
	}

	var env envelope
	if resp.StatusCode >= 400 {
		_ = json.Unmarshal(raw, &env)
		return nil, c.classifyFailure(op, resp.StatusCode, env)
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, rails.NewRailError(rails.ErrorInternal, providerName, op, "malformed provider response", err)
	}
	return &TransactionEnvelope{ID: env.Data.ID, Status: env.Data.Status}, nil
}

func (c *Client) classifyFailure(op rails.Operation, status int, env envelope) error {
	switch env.Status.ErrorCode {
	case "ERROR_INSUFFICIENT_FUNDS", "NOT_ENOUGH_FUNDS":
		return rails.NewRailError(rails.ErrorInsufficientFunds, providerName, op, env.Status.Message, nil)
	}
	return rails.ClassifyHTTPStatus(providerName, op, status, env.Status.Message)
}

// sign computes the Rapyd request signature.
func (c *Client) sign(method, path, salt, timestamp string, body []byte) string {
	toSign := strings.ToLower(method) + path + salt + timestamp + c.accessKey + c.secretKey + string(body)
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(toSign))
	hexDigest := hex.EncodeToString(mac.Sum(nil))
	return base64.StdEncoding.EncodeToString([]byte(hexDigest))
}

func randomSalt() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
