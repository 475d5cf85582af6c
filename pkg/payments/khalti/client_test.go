package khalti

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/config"
)

func testConfig(baseURL string) config.KhaltiConfig {
	return config.KhaltiConfig{
		SecretKey: "test-secret",
		BaseURL:   baseURL,
		ReturnURL: "https://bazarly.test/payments/khalti/return",
	}
}

func TestNewClient_RequiresSecret(t *testing.T) {
	if _, err := NewClient(config.KhaltiConfig{BaseURL: "https://dev.khalti.com/api/v2"}); err == nil {
		t.Fatal("expected secret key error")
	}
}

func TestInitiate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/epayment/initiate/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Key test-secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		// 150.50 rupees = 15050 paisa
		if got := body["amount"]; got != float64(15050) {
			t.Errorf("unexpected amount %v", got)
		}
		if got := body["purchase_order_id"]; got != "order-42" {
			t.Errorf("unexpected purchase_order_id %v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuSsB","payment_url":"https://test-pay.khalti.com/?pidx=bZQLD9wRVWo4CdESSfuSsB"}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := client.Initiate(context.Background(), InitiateRequest{
		OrderID:   "order-42",
		OrderName: "Bazarly order",
		Amount:    decimal.RequireFromString("150.50"),
	})
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if out.PIDX != "bZQLD9wRVWo4CdESSfuSsB" {
		t.Fatalf("unexpected pidx %s", out.PIDX)
	}
	if out.PaymentURL == "" {
		t.Fatal("expected a payment url")
	}
}

func TestInitiate_Validation(t *testing.T) {
	client, err := NewClient(testConfig("https://dev.khalti.com/api/v2"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := client.Initiate(context.Background(), InitiateRequest{Amount: decimal.NewFromInt(10)}); err == nil {
		t.Fatal("expected error for missing order id")
	}
	if _, err := client.Initiate(context.Background(), InitiateRequest{OrderID: "x", Amount: decimal.Zero}); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/epayment/lookup/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pidx":"bZQLD9wRVWo4CdESSfuSsB","status":"Completed","transaction_id":"GFq9PFS7b2iYvL8Lir9oXe","total_amount":15050,"refunded":false}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := client.Lookup(context.Background(), "bZQLD9wRVWo4CdESSfuSsB")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if out.Status != StatusCompleted {
		t.Fatalf("unexpected status %s", out.Status)
	}
	if out.TransactionID != "GFq9PFS7b2iYvL8Lir9oXe" {
		t.Fatalf("unexpected transaction id %s", out.TransactionID)
	}
}

func TestLookup_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := client.Lookup(context.Background(), "missing"); err == nil {
		t.Fatal("expected gateway error")
	}
}
