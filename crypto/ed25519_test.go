package crypto

import "testing"

func TestSeedRoundTripsThroughSigningKeyFromSeed(t *testing.T) {
	sk, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	seed := sk.Seed()
	if len(seed) != 32 {
		t.Fatalf("expected a 32-byte seed, got %d", len(seed))
	}

	reloaded, err := SigningKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("SigningKeyFromSeed: %v", err)
	}
	if !reloaded.VerifyingKey().Equal(sk.VerifyingKey()) {
		t.Fatalf("expected reloaded key to match the original verifying key")
	}
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	sk, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	msg := []byte("job-receipt-payload")
	sig := sk.Sign(msg)
	if !sk.VerifyingKey().Verify(msg, sig) {
		t.Fatalf("expected signature to verify")
	}
	if sk.VerifyingKey().Verify([]byte("tampered"), sig) {
		t.Fatalf("expected signature over different message to fail")
	}
}

func TestSignHardenedRejectsEmptyAndOversizedMessages(t *testing.T) {
	sk, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	if _, err := sk.SignHardened(nil); err == nil {
		t.Fatalf("expected empty message to be rejected")
	}
	oversized := make([]byte, maxInputLength+1)
	if _, err := sk.SignHardened(oversized); err == nil {
		t.Fatalf("expected oversized message to be rejected")
	}
}

func TestDidKeyRoundTrip(t *testing.T) {
	sk, err := GenerateSigningKey()
	if err != nil {
		t.Fatalf("GenerateSigningKey: %v", err)
	}
	didKey, err := DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		t.Fatalf("DidKeyFromVerifyingKey: %v", err)
	}
	vk, err := VerifyingKeyFromDidKey(didKey)
	if err != nil {
		t.Fatalf("VerifyingKeyFromDidKey: %v", err)
	}
	if !vk.Equal(sk.VerifyingKey()) {
		t.Fatalf("expected round-tripped verifying key to match original")
	}
}
