package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreatePreference_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/checkout/preferences" {
			t.Fatalf("path = %s, want /checkout/preferences", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer TEST-token" {
			t.Fatalf("authorization = %q", auth)
		}

		var req PreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ExternalReference != "EGUVA-7" {
			t.Fatalf("external_reference = %q, want EGUVA-7", req.ExternalReference)
		}
		if len(req.Items) != 2 {
			t.Fatalf("items = %d, want 2", len(req.Items))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(PreferenceResponse{
			ID:        "pref-123",
			InitPoint: "https://mercadopago.test/init/pref-123",
		})
	}))
	defer ts.Close()

	client := NewClientWithBaseURL("TEST-token", ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := client.CreatePreference(ctx, PreferenceRequest{
		Items: []PreferenceItem{
			{ID: "1", Title: "Polo", Quantity: 2, UnitPrice: 20},
			{ID: "shipping", Title: "Costo de Envío", Quantity: 1, UnitPrice: 15},
		},
		ExternalReference: "EGUVA-7",
	})
	if err != nil {
		t.Fatalf("CreatePreference error: %v", err)
	}
	if resp.ID != "pref-123" {
		t.Fatalf("ID = %q, want pref-123", resp.ID)
	}
	if resp.InitPoint != "https://mercadopago.test/init/pref-123" {
		t.Fatalf("InitPoint = %q", resp.InitPoint)
	}
}

func TestCreatePayment_SetsIdempotencyKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Idempotency-Key") == "" {
			t.Fatalf("X-Idempotency-Key header is empty")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Payment{
			ID:           555,
			Status:       "approved",
			StatusDetail: "accredited",
		})
	}))
	defer ts.Close()

	client := NewClientWithBaseURL("TEST-token", ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	resp, err := client.CreatePayment(ctx, PaymentRequest{
		TransactionAmount: 55,
		Token:             "card-token",
		PaymentMethodID:   "visa",
		Installments:      1,
		Payer:             PaymentPayer{Email: "cliente@example.com"},
		ExternalReference: "EGUVA-7",
	})
	if err != nil {
		t.Fatalf("CreatePayment error: %v", err)
	}
	if resp.Status != "approved" || resp.StatusDetail != "accredited" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestGetPayment_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/v1/payments/987" {
			t.Fatalf("path = %s, want /v1/payments/987", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Payment{
			ID:                987,
			Status:            "approved",
			ExternalReference: "EGUVA-42",
		})
	}))
	defer ts.Close()

	client := NewClientWithBaseURL("TEST-token", ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	payment, err := client.GetPayment(ctx, "987")
	if err != nil {
		t.Fatalf("GetPayment error: %v", err)
	}
	if payment.ID != 987 || payment.Status != "approved" {
		t.Fatalf("unexpected payment: %+v", payment)
	}
	if payment.ExternalReference != "EGUVA-42" {
		t.Fatalf("ExternalReference = %q, want EGUVA-42", payment.ExternalReference)
	}
}

func TestDo_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad request","cause":[{"description":"cc_rejected_insufficient_amount"}]}`))
	}))
	defer ts.Close()

	client := NewClientWithBaseURL("TEST-token", ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.GetPayment(ctx, "1")
	if err == nil {
		t.Fatalf("expected error for 400 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "cc_rejected_insufficient_amount" {
		t.Fatalf("Message = %q, want cause description", apiErr.Message)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := client.GetPayment(ctx, "1"); err == nil {
		t.Fatalf("expected error for client without access token")
	}
}
