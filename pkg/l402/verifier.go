package l402

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyPreimage reports whether the hex-encoded preimage hashes to the
// hex-encoded payment hash. The comparison is case-insensitive on both
// sides. It is total over arbitrary string input: malformed hex yields
// false, never an error.
func VerifyPreimage(preimage, macaroon string) bool {
	raw, err := hex.DecodeString(preimage)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(raw)
	return strings.EqualFold(hex.EncodeToString(sum[:]), macaroon)
}
