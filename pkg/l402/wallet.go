package l402

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InvoiceRequest describes the obligation a gate asks its wallet to mint.
type InvoiceRequest struct {
	// Amount in the smallest currency unit (e.g. satoshis).
	Amount int64

	// Description attached to the invoice, shown to the payer.
	Description string

	// Expiry is how long the invoice stays payable.
	Expiry time.Duration
}

// Invoice is a freshly minted, unsettled obligation.
type Invoice struct {
	// PaymentRequest is the opaque payment target the payer settles
	// (e.g. a BOLT11 string). The gate never interprets it.
	PaymentRequest string

	// PaymentHash is the hex-encoded hash a valid preimage must hash to.
	PaymentHash string
}

// Wallet mints invoices on behalf of a server gate.
type Wallet interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
}

// Payer settles invoices on behalf of a client. PayInvoice returns the
// hex-encoded preimage released by settlement.
type Payer interface {
	PayInvoice(ctx context.Context, paymentRequest string) (string, error)
}

// InvoiceDecoder is an optional wallet capability: read an invoice's
// amount without paying it. The client uses it to enforce a spending cap
// before any payment is attempted.
type InvoiceDecoder interface {
	DecodeInvoice(ctx context.Context, paymentRequest string) (int64, error)
}

// ErrUnknownInvoice is returned by MockWallet for payment requests it
// did not mint.
var ErrUnknownInvoice = errors.New("unknown invoice")

// MockWallet is an in-memory Wallet, Payer and InvoiceDecoder.
// Useful for testing and demos: invoices settle instantly and the
// preimage always matches the payment hash.
type MockWallet struct {
	mu       sync.Mutex
	invoices map[string]mockInvoice
}

type mockInvoice struct {
	preimage string
	amount   int64
}

// NewMockWallet creates an empty mock wallet.
func NewMockWallet() *MockWallet {
	return &MockWallet{invoices: make(map[string]mockInvoice)}
}

// CreateInvoice mints an invoice backed by a random 32-byte preimage.
func (w *MockWallet) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Invoice{}, err
	}
	sum := sha256.Sum256(raw)

	inv := Invoice{
		PaymentRequest: "lnmock1" + uuid.NewString(),
		PaymentHash:    hex.EncodeToString(sum[:]),
	}

	w.mu.Lock()
	w.invoices[inv.PaymentRequest] = mockInvoice{
		preimage: hex.EncodeToString(raw),
		amount:   req.Amount,
	}
	w.mu.Unlock()

	return inv, nil
}

// PayInvoice settles a previously minted invoice and returns its preimage.
func (w *MockWallet) PayInvoice(ctx context.Context, paymentRequest string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	inv, ok := w.invoices[paymentRequest]
	if !ok {
		return "", ErrUnknownInvoice
	}
	return inv.preimage, nil
}

// DecodeInvoice returns the amount of a previously minted invoice.
func (w *MockWallet) DecodeInvoice(ctx context.Context, paymentRequest string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	inv, ok := w.invoices[paymentRequest]
	if !ok {
		return 0, ErrUnknownInvoice
	}
	return inv.amount, nil
}
