package l402

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrBudgetExceeded is returned when a decoded invoice amount
	// exceeds the configured spending cap. No payment is attempted.
	ErrBudgetExceeded = errors.New("l402: invoice exceeds spending cap")

	// ErrNoPreimage is returned when the wallet settles an invoice
	// without releasing a preimage.
	ErrNoPreimage = errors.New("l402: wallet returned no preimage")
)

// maxChallengeBody bounds how much of a 402 body is read for the
// amount fallback.
const maxChallengeBody = 1 << 20

// Payment describes a completed settlement, passed to OnPayment.
type Payment struct {
	Invoice  string
	Macaroon string
	Preimage string

	// Amount is 0 when it could not be determined.
	Amount int64
}

// ClientConfig holds the configuration for an auto-paying client.
type ClientConfig struct {
	// HTTPClient performs the underlying exchanges. Default
	// http.DefaultClient.
	HTTPClient *http.Client

	// Wallet settles invoices. Nil disables auto-pay entirely: 402
	// responses are returned unchanged.
	Wallet Payer

	// Decoder, when non-nil, reads invoice amounts for spending-cap
	// enforcement. Without it the cap falls back to the 402 body.
	Decoder InvoiceDecoder

	// MaxAmount caps what a single request may cost. 0 disables the cap.
	// An invoice whose amount cannot be determined is not capped.
	MaxAmount int64

	// Store caches paid credentials per resource. Nil disables caching.
	Store CredentialStore

	// CredentialTTL is the client-assigned lifetime of cached
	// credentials. The protocol transmits no expiry, so this is a pure
	// client-side guess, uncorrelated with the server's challenge
	// expiry. Default 1h.
	CredentialTTL time.Duration

	// OnPayment is invoked after each successful settlement, before the
	// replay. Best-effort: an undetermined amount is reported as 0.
	OnPayment func(Payment)

	// Metrics records cache lookups and settlements when non-nil.
	Metrics *Metrics
}

// Client wraps an HTTP exchange with automatic L402 challenge handling:
// it consults the credential cache, recognizes 402 challenges, pays them
// through the configured wallet, and replays the request with proof
// attached. Each call performs at most one challenge→pay→replay cycle;
// a second 402 after replay is surfaced to the caller, never retried.
type Client struct {
	cfg ClientConfig
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.CredentialTTL <= 0 {
		cfg.CredentialTTL = defaultCredentialTTL
	}
	return &Client{cfg: cfg}
}

// Do performs the request, transparently satisfying an L402 challenge if
// one is issued. Non-402 responses are returned unchanged. The three
// failure modes distinguishable from transport errors are
// ErrBudgetExceeded, ErrNoPreimage, and a wrapped wallet payment error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	// Buffer the body up front so the exchange can be replayed.
	if req.Body != nil && req.GetBody == nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("l402: buffer request body: %w", err)
		}
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
	}

	key := CacheKey(req.URL, req.Method)

	if c.cfg.Store != nil {
		if cred, ok := c.cfg.Store.Get(req.Context(), key); ok {
			c.cfg.Metrics.cacheLookup("hit")
			resp, err := c.send(req, EncodeProof(cred.Macaroon, cred.Preimage))
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusPaymentRequired && resp.StatusCode != http.StatusUnauthorized {
				return resp, nil
			}
			// The server-side obligation can expire before the
			// client-assigned TTL; drop the entry and renegotiate.
			c.cfg.Store.Invalidate(req.Context(), key)
			drain(resp)
		} else {
			c.cfg.Metrics.cacheLookup("miss")
		}
	}

	resp, err := c.send(req, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	challenge, ok := DecodeChallenge(resp.Header.Get("WWW-Authenticate"))
	if !ok || c.cfg.Wallet == nil {
		// Auto-pay is strictly opt-in, and an undecodable challenge is
		// the caller's to handle: return the 402 untouched.
		return resp, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxChallengeBody))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("l402: read challenge body: %w", err)
	}

	amount, amountKnown := c.invoiceAmount(req.Context(), challenge.Invoice, body)
	if c.cfg.MaxAmount > 0 && amountKnown && amount > c.cfg.MaxAmount {
		return nil, fmt.Errorf("%w: amount %d, cap %d", ErrBudgetExceeded, amount, c.cfg.MaxAmount)
	}

	preimage, err := c.cfg.Wallet.PayInvoice(req.Context(), challenge.Invoice)
	if err != nil {
		return nil, fmt.Errorf("l402: pay invoice: %w", err)
	}
	if preimage == "" {
		return nil, ErrNoPreimage
	}

	c.cfg.Metrics.paymentSettled(amount)
	if c.cfg.OnPayment != nil {
		c.cfg.OnPayment(Payment{
			Invoice:  challenge.Invoice,
			Macaroon: challenge.Macaroon,
			Preimage: preimage,
			Amount:   amount,
		})
	}

	// Cache only material that re-verifies; the cache never stores an
	// unverified proof.
	if c.cfg.Store != nil && VerifyPreimage(preimage, challenge.Macaroon) {
		c.cfg.Store.Set(req.Context(), key, &Credential{
			Macaroon:  challenge.Macaroon,
			Preimage:  preimage,
			ExpiresAt: time.Now().Add(c.cfg.CredentialTTL),
		})
	}

	return c.send(req, EncodeProof(challenge.Macaroon, preimage))
}

// send dispatches a fresh clone of the request, optionally with an
// Authorization header attached.
func (c *Client) send(req *http.Request, authorization string) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	if authorization != "" {
		clone.Header.Set("Authorization", authorization)
	}
	return c.cfg.HTTPClient.Do(clone)
}

// invoiceAmount determines the obligation amount: wallet decode first,
// then the amount field of the 402 body. Both steps are best-effort.
func (c *Client) invoiceAmount(ctx context.Context, invoice string, body []byte) (int64, bool) {
	if c.cfg.Decoder != nil {
		if amount, err := c.cfg.Decoder.DecodeInvoice(ctx, invoice); err == nil && amount > 0 {
			return amount, true
		}
	}

	var pr PaymentRequired
	if err := json.Unmarshal(body, &pr); err == nil && pr.Amount > 0 {
		return pr.Amount, true
	}
	return 0, false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
