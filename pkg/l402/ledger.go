package l402

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is one settled payment observed by a gate.
type PaymentRecord struct {
	ID        string    `json:"id"`
	Macaroon  string    `json:"macaroon"`
	Resource  string    `json:"resource"`
	Method    string    `json:"method"`
	Amount    int64     `json:"amount"`
	SettledAt time.Time `json:"settledAt"`
}

// LedgerTotals are running aggregates over all recorded payments,
// including records dropped by capacity eviction.
type LedgerTotals struct {
	Payments int64 `json:"payments"`
	Revenue  int64 `json:"revenue"`
}

// LedgerStore records settled payments for revenue accounting.
type LedgerStore interface {
	RecordPayment(rec PaymentRecord) error
	ListPayments(limit int) ([]PaymentRecord, error)
	Totals() (LedgerTotals, error)
}

// MemoryLedger is a bounded in-memory LedgerStore. At capacity the
// oldest record is dropped; totals are kept running so eviction never
// loses revenue.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []PaymentRecord
	maxSize int
	totals  LedgerTotals
}

// NewMemoryLedger creates a MemoryLedger holding at most maxSize records.
func NewMemoryLedger(maxSize int) *MemoryLedger {
	if maxSize <= 0 {
		maxSize = 100000
	}
	return &MemoryLedger{
		records: make([]PaymentRecord, 0, maxSize),
		maxSize: maxSize,
	}
}

// RecordPayment stores a payment record, assigning an ID and settlement
// time when absent.
func (l *MemoryLedger) RecordPayment(rec PaymentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SettledAt.IsZero() {
		rec.SettledAt = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) >= l.maxSize {
		l.records = l.records[1:]
	}
	l.records = append(l.records, rec)
	l.totals.Payments++
	l.totals.Revenue += rec.Amount
	return nil
}

// ListPayments returns up to limit records, newest first.
func (l *MemoryLedger) ListPayments(limit int) ([]PaymentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.records) {
		limit = len(l.records)
	}

	out := make([]PaymentRecord, 0, limit)
	for i := len(l.records) - 1; i >= len(l.records)-limit; i-- {
		out = append(out, l.records[i])
	}
	return out, nil
}

// Totals returns the running aggregates.
func (l *MemoryLedger) Totals() (LedgerTotals, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totals, nil
}

// ledgerResponse is the LedgerHandler response body.
type ledgerResponse struct {
	Totals   LedgerTotals    `json:"totals"`
	Payments []PaymentRecord `json:"payments"`
}

// LedgerHandler returns an HTTP handler exposing ledger totals and the
// most recent receipts as JSON.
func LedgerHandler(store LedgerStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		totals, err := store.Totals()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		payments, err := store.ListPayments(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ledgerResponse{Totals: totals, Payments: payments})
	}
}
