package l402

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type failingWallet struct {
	err error
}

func (w failingWallet) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	return Invoice{}, w.err
}

func gateTestConfig(wallet Wallet) GateConfig {
	return GateConfig{
		Wallet:      wallet,
		Price:       100,
		Description: "test resource",
		ExemptPaths: []string{"/public"},
	}
}

func protectedHandler(t *testing.T, sawPayment *PaymentDetails) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		details, ok := PaymentFromContext(r.Context())
		if !ok {
			t.Error("Expected payment details in admitted request context")
		}
		if sawPayment != nil {
			*sawPayment = details
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Success"))
	})
}

func TestMiddleware_NoProofIssuesChallenge(t *testing.T) {
	wallet := NewMockWallet()
	wrapped := Middleware(protectedHandler(t, nil), gateTestConfig(wallet))

	req := httptest.NewRequest("GET", "/api/protected", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("Expected status 402, got %d", resp.StatusCode)
	}

	challenge, ok := DecodeChallenge(resp.Header.Get("WWW-Authenticate"))
	if !ok {
		t.Fatalf("Expected decodable challenge header, got %q", resp.Header.Get("WWW-Authenticate"))
	}
	if challenge.Invoice == "" || challenge.Macaroon == "" {
		t.Errorf("Incomplete challenge: %+v", challenge)
	}

	var body PaymentRequired
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode 402 body: %v", err)
	}
	if body.Amount != 100 {
		t.Errorf("Expected amount 100, got %d", body.Amount)
	}
	if body.Invoice != challenge.Invoice {
		t.Error("Expected body invoice to match the challenge header")
	}
}

func TestMiddleware_ValidProofAdmitted(t *testing.T) {
	wallet := NewMockWallet()
	var saw PaymentDetails
	wrapped := Middleware(protectedHandler(t, &saw), gateTestConfig(wallet))

	invoice, err := wallet.CreateInvoice(context.Background(), InvoiceRequest{Amount: 100})
	if err != nil {
		t.Fatalf("CreateInvoice failed: %v", err)
	}
	preimage, err := wallet.PayInvoice(context.Background(), invoice.PaymentRequest)
	if err != nil {
		t.Fatalf("PayInvoice failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/protected", nil)
	req.Header.Set("Authorization", EncodeProof(invoice.PaymentHash, preimage))
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if saw.Macaroon != invoice.PaymentHash {
		t.Errorf("Expected macaroon %s in context, got %s", invoice.PaymentHash, saw.Macaroon)
	}
	if saw.Preimage != preimage {
		t.Error("Expected preimage in context")
	}
	if saw.Amount != 100 {
		t.Errorf("Expected amount 100 in context, got %d", saw.Amount)
	}
}

func TestMiddleware_ProofAcceptedWithoutPriorChallenge(t *testing.T) {
	// Admission re-verifies the proof and never consults the pending
	// table, so a proof minted by another process (or before a restart)
	// still admits.
	serverWallet := NewMockWallet()
	wrapped := Middleware(protectedHandler(t, nil), gateTestConfig(serverWallet))

	otherWallet := NewMockWallet()
	invoice, _ := otherWallet.CreateInvoice(context.Background(), InvoiceRequest{Amount: 100})
	preimage, _ := otherWallet.PayInvoice(context.Background(), invoice.PaymentRequest)

	req := httptest.NewRequest("GET", "/api/protected", nil)
	req.Header.Set("Authorization", EncodeProof(invoice.PaymentHash, preimage))
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Result().StatusCode)
	}
}

func TestMiddleware_InvalidProofRechallenged(t *testing.T) {
	wallet := NewMockWallet()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not run for an invalid proof")
	})
	wrapped := Middleware(handler, gateTestConfig(wallet))

	headers := []string{
		"L402 9f2c:71a0",       // preimage does not hash to macaroon
		"L402 not-even-hex",    // malformed
		"Bearer sometoken",     // wrong scheme
	}

	for _, header := range headers {
		req := httptest.NewRequest("GET", "/api/protected", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()

		wrapped.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusPaymentRequired {
			t.Errorf("Expected status 402 for %q, got %d", header, w.Result().StatusCode)
		}
	}
}

func TestMiddleware_WalletFailure(t *testing.T) {
	wrapped := Middleware(protectedHandler(t, nil), gateTestConfig(failingWallet{err: errors.New("node unreachable")}))

	req := httptest.NewRequest("GET", "/api/protected", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	status := w.Result().StatusCode
	if status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", status)
	}
	if status == http.StatusPaymentRequired {
		t.Error("Wallet failure must be distinct from 402")
	}
}

func TestMiddleware_ExemptPath(t *testing.T) {
	wallet := NewMockWallet()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := Middleware(handler, gateTestConfig(wallet))

	req := httptest.NewRequest("GET", "/public/resource", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 for exempt path, got %d", w.Result().StatusCode)
	}
}

func TestMiddleware_LedgerRecordsAdmission(t *testing.T) {
	wallet := NewMockWallet()
	ledger := NewMemoryLedger(10)

	config := gateTestConfig(wallet)
	config.Ledger = ledger
	wrapped := Middleware(protectedHandler(t, nil), config)

	invoice, _ := wallet.CreateInvoice(context.Background(), InvoiceRequest{Amount: 100})
	preimage, _ := wallet.PayInvoice(context.Background(), invoice.PaymentRequest)

	req := httptest.NewRequest("POST", "/api/protected", nil)
	req.Header.Set("Authorization", EncodeProof(invoice.PaymentHash, preimage))
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	totals, _ := ledger.Totals()
	if totals.Payments != 1 || totals.Revenue != 100 {
		t.Errorf("Expected 1 payment of 100 recorded, got %+v", totals)
	}

	records, _ := ledger.ListPayments(10)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Macaroon != invoice.PaymentHash {
		t.Error("Expected record to carry the payment hash")
	}
	if records[0].Method != "POST" || records[0].Resource != "/api/protected" {
		t.Errorf("Unexpected record: %+v", records[0])
	}
}

func TestMiddleware_DefaultChallengeExpiry(t *testing.T) {
	config := gateTestConfig(NewMockWallet())
	config.ChallengeExpiry = 0
	config.Clock = func() time.Time { return time.Unix(1700000000, 0) }

	wrapped := Middleware(protectedHandler(t, nil), config)

	req := httptest.NewRequest("GET", "/api/protected", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusPaymentRequired {
		t.Errorf("Expected status 402, got %d", w.Result().StatusCode)
	}
}
