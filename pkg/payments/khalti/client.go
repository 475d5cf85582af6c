package khalti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/config"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

const (
	initiatePath            = "/epayment/initiate/"
	lookupPath              = "/epayment/lookup/"
	responseBodyLimit int64 = 4096
	defaultTimeout          = 10 * time.Second
)

// StatusCompleted is the terminal success status reported by the lookup API.
const StatusCompleted = "Completed"

var errSecretKeyRequired = errors.New("khalti secret key is required")

// Client wraps the Khalti ePayment initiate and lookup APIs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	returnURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the Khalti client from configuration.
func NewClient(cfg config.KhaltiConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretKeyRequired
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		returnURL:  cfg.ReturnURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// InitiateRequest describes the payment being started.
type InitiateRequest struct {
	OrderID   string
	OrderName string
	// Amount is in rupees; Khalti expects paisa on the wire.
	Amount decimal.Decimal
}

// InitiateResponse carries the redirect handle returned by the gateway.
type InitiateResponse struct {
	PIDX       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// Initiate starts an ePayment flow and returns the hosted payment URL.
func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "khalti client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	body := map[string]any{
		"return_url":          c.returnURL,
		"website_url":         c.returnURL,
		"amount":              req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"purchase_order_id":   req.OrderID,
		"purchase_order_name": req.OrderName,
	}
	var out InitiateResponse
	if err := c.post(ctx, initiatePath, body, &out); err != nil {
		return nil, err
	}
	if out.PIDX == "" || out.PaymentURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "khalti initiate returned empty handle")
	}
	return &out, nil
}

// LookupResponse is the normalized lookup payload.
type LookupResponse struct {
	PIDX          string `json:"pidx"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	TotalAmount   int64  `json:"total_amount"`
	Refunded      bool   `json:"refunded"`
}

// Lookup fetches the current state of a payment by pidx. Callers must treat
// any status other than Completed as unpaid.
func (c *Client) Lookup(ctx context.Context, pidx string) (*LookupResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "khalti client not configured")
	}
	if strings.TrimSpace(pidx) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pidx is required")
	}

	var out LookupResponse
	if err := c.post(ctx, lookupPath, map[string]any{"pidx": pidx}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal khalti request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build khalti request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.secretKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute khalti request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "khalti request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode khalti response")
	}
	return nil
}
