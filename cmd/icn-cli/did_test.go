package main

import (
	"path/filepath"
	"testing"
)

func TestCreateAndLoadSigningKeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "wallet.key")

	createDid(keyFile)

	sk, err := loadSigningKey(keyFile)
	if err != nil {
		t.Fatalf("loadSigningKey: %v", err)
	}
	did, err := didFromSigningKey(sk)
	if err != nil {
		t.Fatalf("didFromSigningKey: %v", err)
	}
	if did.Method != "key" {
		t.Fatalf("expected a did:key identifier, got method %q", did.Method)
	}
}
