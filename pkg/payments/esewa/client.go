package esewa

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/config"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
)

const (
	formPath                  = "/api/epay/main/v2/form"
	statusPath                = "/api/epay/transaction/status/"
	signedFieldNames          = "total_amount,transaction_uuid,product_code"
	responseBodyLimit   int64 = 4096
	defaultHTTPTimeout        = 10 * time.Second
)

// StatusComplete is the terminal success status reported by the gateway.
const StatusComplete = "COMPLETE"

var (
	errMerchantCodeRequired = errors.New("esewa merchant code is required")
	errSecretKeyRequired    = errors.New("esewa secret key is required")
)

// Client wraps the eSewa ePay v2 form-redirect and status APIs.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	merchantCode string
	secretKey    string
	returnURL    string
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

// NewClient builds the eSewa client from configuration.
func NewClient(cfg config.EsewaConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.MerchantCode) == "" {
		return nil, errMerchantCodeRequired
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		merchantCode: strings.TrimSpace(cfg.MerchantCode),
		secretKey:    cfg.SecretKey,
		returnURL:    cfg.ReturnURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// RedirectForm carries everything the client needs to perform the
// gateway form POST from the browser.
type RedirectForm struct {
	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
}

// BuildRedirect assembles the signed form payload for the given order.
// Amounts are in rupees; the gateway expects plain decimal strings.
func (c *Client) BuildRedirect(transactionUUID string, totalAmount decimal.Decimal) (*RedirectForm, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "esewa client not configured")
	}
	if strings.TrimSpace(transactionUUID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction uuid is required")
	}
	if totalAmount.IsNegative() || totalAmount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}

	amount := totalAmount.StringFixed(2)
	fields := map[string]string{
		"amount":                  amount,
		"tax_amount":              "0",
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"total_amount":            amount,
		"transaction_uuid":        transactionUUID,
		"product_code":            c.merchantCode,
		"success_url":             c.returnURL,
		"failure_url":             c.returnURL,
		"signed_field_names":      signedFieldNames,
	}
	fields["signature"] = c.sign(amount, transactionUUID)

	return &RedirectForm{
		URL:    c.baseURL + formPath,
		Method: http.MethodPost,
		Fields: fields,
	}, nil
}

// StatusResponse is the normalized gateway status payload.
type StatusResponse struct {
	Status          string          `json:"status"`
	RefID           string          `json:"ref_id"`
	TransactionUUID string          `json:"transaction_uuid"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// VerifyStatus queries the transaction status API. Callers must treat any
// status other than COMPLETE as unpaid.
func (c *Client) VerifyStatus(ctx context.Context, transactionUUID string, totalAmount decimal.Decimal) (*StatusResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "esewa client not configured")
	}
	if strings.TrimSpace(transactionUUID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction uuid is required")
	}

	query := url.Values{}
	query.Set("product_code", c.merchantCode)
	query.Set("total_amount", totalAmount.StringFixed(2))
	query.Set("transaction_uuid", transactionUUID)

	endpoint := c.baseURL + statusPath + "?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build esewa status request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute esewa status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "esewa status request failed")
	}

	var out StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode esewa status response")
	}
	return &out, nil
}

// VerifySignature checks a callback signature against the signed fields.
func (c *Client) VerifySignature(totalAmount, transactionUUID, signature string) bool {
	expected := c.sign(totalAmount, transactionUUID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) sign(totalAmount, transactionUUID string) string {
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, c.merchantCode)
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
