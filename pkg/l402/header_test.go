package l402

import "testing"

func TestEncodeChallenge(t *testing.T) {
	header := EncodeChallenge("lnbc10n1fake", "9f2c")

	if header != `L402 invoice="lnbc10n1fake", macaroon="9f2c"` {
		t.Errorf("Unexpected challenge header: %s", header)
	}
}

func TestDecodeChallenge_RoundTrip(t *testing.T) {
	header := EncodeChallenge("lnbc10n1fake", "9f2c01ab")

	ch, ok := DecodeChallenge(header)
	if !ok {
		t.Fatalf("Failed to decode %q", header)
	}
	if ch.Invoice != "lnbc10n1fake" {
		t.Errorf("Expected invoice lnbc10n1fake, got %s", ch.Invoice)
	}
	if ch.Macaroon != "9f2c01ab" {
		t.Errorf("Expected macaroon 9f2c01ab, got %s", ch.Macaroon)
	}
}

func TestDecodeChallenge_SchemeCaseInsensitive(t *testing.T) {
	for _, header := range []string{
		`l402 invoice="inv", macaroon="ab"`,
		`L402 invoice="inv", macaroon="ab"`,
		`l402 INVOICE="inv", MACAROON="ab"`,
	} {
		if _, ok := DecodeChallenge(header); !ok {
			t.Errorf("Expected %q to decode", header)
		}
	}
}

func TestDecodeChallenge_FieldOrderInsignificant(t *testing.T) {
	ch, ok := DecodeChallenge(`L402 macaroon="ab", invoice="inv"`)
	if !ok {
		t.Fatal("Failed to decode reordered challenge")
	}
	if ch.Invoice != "inv" || ch.Macaroon != "ab" {
		t.Errorf("Unexpected decode result: %+v", ch)
	}
}

func TestDecodeChallenge_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"L402",
		"L402 ",
		`Bearer invoice="inv", macaroon="ab"`,
		`L402 invoice="inv"`,
		`L402 macaroon="ab"`,
		`invoice="inv", macaroon="ab"`,
	}

	for _, header := range invalid {
		if _, ok := DecodeChallenge(header); ok {
			t.Errorf("Expected %q to be rejected", header)
		}
	}
}

func TestDecodeProof_Valid(t *testing.T) {
	proof, ok := DecodeProof("l402 9F2C:71a0")
	if !ok {
		t.Fatal("Failed to decode proof")
	}
	if proof.Macaroon != "9F2C" {
		t.Errorf("Expected macaroon 9F2C, got %s", proof.Macaroon)
	}
	if proof.Preimage != "71a0" {
		t.Errorf("Expected preimage 71a0, got %s", proof.Preimage)
	}
}

func TestDecodeProof_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"L402",
		"L402 9f2c71a0",   // missing separator
		"L402 :71a0",      // empty macaroon
		"L402 9f2c:",      // empty preimage
		"L402 9f2c:71g0",  // non-hex preimage
		"L402 zf2c:71a0",  // non-hex macaroon
		"Bearer 9f2c:71a0",
		"L402 9f2c:71a0:extra", // second colon lands in the preimage half
	}

	for _, header := range invalid {
		if _, ok := DecodeProof(header); ok {
			t.Errorf("Expected %q to be rejected", header)
		}
	}
}

func TestDecodeProof_RoundTrip(t *testing.T) {
	header := EncodeProof("9f2c", "71a0")

	proof, ok := DecodeProof(header)
	if !ok {
		t.Fatalf("Failed to decode %q", header)
	}
	if proof.Macaroon != "9f2c" || proof.Preimage != "71a0" {
		t.Errorf("Unexpected decode result: %+v", proof)
	}
}
