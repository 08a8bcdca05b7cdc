package l402

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// GateConfig holds the configuration for the L402 server gate.
type GateConfig struct {
	// Wallet mints invoices for issued challenges. Required.
	Wallet Wallet

	// Price per request in the smallest currency unit. Required, positive.
	Price int64

	// Description attached to minted invoices and the 402 body.
	Description string

	// ChallengeExpiry is how long an issued challenge stays payable.
	// Default 10 minutes.
	ChallengeExpiry time.Duration

	// ExemptPaths lists path prefixes that don't require payment.
	ExemptPaths []string

	// MaxPending soft-bounds the pending obligation table. Crossing it
	// triggers an opportunistic sweep, not a hard rejection. Default 4096.
	MaxPending int

	// Metrics records gate outcomes when non-nil.
	Metrics *Metrics

	// Ledger records admitted payments when non-nil.
	Ledger LedgerStore

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

const defaultChallengeExpiry = 10 * time.Minute

// PaymentRequired is the 402 response body. The amount field doubles as
// the client's spending-cap fallback when its wallet cannot decode the
// invoice.
type PaymentRequired struct {
	Amount      int64  `json:"amount"`
	Invoice     string `json:"invoice"`
	Description string `json:"description,omitempty"`
}

// Middleware creates a handler that gates non-exempt requests behind an
// L402 proof-of-payment challenge. A request carrying a proof whose
// preimage hashes to its payment hash is admitted with the verified
// payment facts attached to its context; any other request is answered
// 402 with a fresh challenge. Admission never consults the pending
// table, so proofs survive process restarts.
func Middleware(next http.Handler, config GateConfig) http.Handler {
	if config.Wallet == nil {
		panic("l402: GateConfig.Wallet is required")
	}
	if config.Price <= 0 {
		panic("l402: GateConfig.Price must be positive")
	}
	if config.ChallengeExpiry <= 0 {
		config.ChallengeExpiry = defaultChallengeExpiry
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	pending := newPendingTable(config.MaxPending, config.Clock)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isExemptPath(r.URL.Path, config.ExemptPaths) {
			next.ServeHTTP(w, r)
			return
		}

		proof, ok := DecodeProof(r.Header.Get("Authorization"))
		if ok && VerifyPreimage(proof.Preimage, proof.Macaroon) {
			config.Metrics.gateOutcome(outcomeAdmitted)
			if config.Ledger != nil {
				_ = config.Ledger.RecordPayment(PaymentRecord{
					Macaroon: proof.Macaroon,
					Resource: r.URL.Path,
					Method:   r.Method,
					Amount:   config.Price,
				})
			}

			ctx := withPaymentDetails(r.Context(), PaymentDetails{
				Macaroon: proof.Macaroon,
				Preimage: proof.Preimage,
				Amount:   config.Price,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Missing, malformed, and failed proofs all re-challenge
		// identically; the reason is never disclosed to the caller.
		issueChallenge(w, r, config, pending)
	})
}

// issueChallenge mints a fresh invoice, records the obligation, and
// responds 402 with the encoded challenge header.
func issueChallenge(w http.ResponseWriter, r *http.Request, config GateConfig, pending *pendingTable) {
	invoice, err := config.Wallet.CreateInvoice(r.Context(), InvoiceRequest{
		Amount:      config.Price,
		Description: config.Description,
		Expiry:      config.ChallengeExpiry,
	})
	if err != nil {
		config.Metrics.gateOutcome(outcomeWalletError)
		log.Printf("l402: create invoice: %v", err)
		http.Error(w, "invoice creation failed", http.StatusInternalServerError)
		return
	}

	now := config.Clock()
	pending.add(invoice.PaymentHash, pendingObligation{
		Invoice:   invoice.PaymentRequest,
		Amount:    config.Price,
		CreatedAt: now,
		ExpiresAt: now.Add(config.ChallengeExpiry),
	})

	config.Metrics.gateOutcome(outcomeChallenged)

	description := config.Description
	if description == "" {
		description = fmt.Sprintf("Payment of %d required to access this resource", config.Price)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", EncodeChallenge(invoice.PaymentRequest, invoice.PaymentHash))
	w.WriteHeader(http.StatusPaymentRequired)

	_ = json.NewEncoder(w).Encode(PaymentRequired{
		Amount:      config.Price,
		Invoice:     invoice.PaymentRequest,
		Description: description,
	})
}

// isExemptPath checks if the requested path is exempt from payment
func isExemptPath(path string, exemptPaths []string) bool {
	for _, exemptPath := range exemptPaths {
		if strings.HasPrefix(path, exemptPath) {
			return true
		}
	}
	return false
}
