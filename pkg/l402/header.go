package l402

import (
	"fmt"
	"regexp"
	"strings"
)

// Scheme is the authentication scheme token used in both header forms.
// It is emitted uppercase and matched case-insensitively on decode.
const Scheme = "L402"

// Challenge is the decoded form of a WWW-Authenticate challenge header:
// an invoice the payer can settle and the payment hash it settles.
type Challenge struct {
	// Invoice is the opaque payment request (e.g. a BOLT11 string).
	Invoice string

	// Macaroon is the hex-encoded payment hash identifying the obligation.
	Macaroon string
}

// Proof is the decoded form of an Authorization header: the payment hash
// and the hex-encoded preimage offered as evidence of settlement.
type Proof struct {
	Macaroon string
	Preimage string
}

var challengeFieldRe = regexp.MustCompile(`(\w+)="([^"]*)"`)

// EncodeChallenge produces the challenge header value,
// e.g. `L402 invoice="lnbc...", macaroon="9f2c..."`.
// Invoice and macaroon are assumed not to contain the quote character.
func EncodeChallenge(invoice, macaroon string) string {
	return fmt.Sprintf("%s invoice=%q, macaroon=%q", Scheme, invoice, macaroon)
}

// DecodeChallenge parses a challenge header value. Field order is not
// significant. Returns false on a missing scheme prefix or a missing
// field; malformed headers are routine untrusted input, never an error.
func DecodeChallenge(header string) (Challenge, bool) {
	rest, ok := trimScheme(header)
	if !ok {
		return Challenge{}, false
	}

	var ch Challenge
	for _, m := range challengeFieldRe.FindAllStringSubmatch(rest, -1) {
		switch strings.ToLower(m[1]) {
		case "invoice":
			ch.Invoice = m[2]
		case "macaroon":
			ch.Macaroon = m[2]
		}
	}

	if ch.Invoice == "" || ch.Macaroon == "" {
		return Challenge{}, false
	}
	return ch, true
}

// EncodeProof produces the authorization header value,
// e.g. `L402 9f2c...:71a0...`.
func EncodeProof(macaroon, preimage string) string {
	return Scheme + " " + macaroon + ":" + preimage
}

// DecodeProof parses an authorization header value. Both halves must be
// non-empty hex; any non-hex character anywhere invalidates the header.
func DecodeProof(header string) (Proof, bool) {
	rest, ok := trimScheme(header)
	if !ok {
		return Proof{}, false
	}

	macaroon, preimage, found := strings.Cut(strings.TrimSpace(rest), ":")
	if !found || macaroon == "" || preimage == "" {
		return Proof{}, false
	}
	if !isHex(macaroon) || !isHex(preimage) {
		return Proof{}, false
	}
	return Proof{Macaroon: macaroon, Preimage: preimage}, true
}

// trimScheme strips the scheme token and the following space,
// matching the token case-insensitively.
func trimScheme(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) <= len(Scheme) || !strings.EqualFold(s[:len(Scheme)], Scheme) {
		return "", false
	}
	if s[len(Scheme)] != ' ' {
		return "", false
	}
	return s[len(Scheme)+1:], true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
