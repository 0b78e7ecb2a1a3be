package identity

import "testing"

func did(id string) Did { return Did{Method: "key", ID: id} }

func TestMemoryTrustStoreMissesWithoutAttestation(t *testing.T) {
	store := NewMemoryTrustStore()
	if _, ok := store.DirectTrust(did("a"), did("b"), ContextGovernance); ok {
		t.Fatal("expected a miss with no attestation recorded")
	}
}

func TestMemoryTrustStoreReturnsAttestedRelationship(t *testing.T) {
	store := NewMemoryTrustStore()
	store.Attest(TrustRelationship{Trustor: did("a"), Trustee: did("b"), Context: ContextGovernance, Level: TrustPartial})

	rel, ok := store.DirectTrust(did("a"), did("b"), ContextGovernance)
	if !ok {
		t.Fatal("expected attested relationship to be found")
	}
	if rel.Level != TrustPartial {
		t.Fatalf("expected TrustPartial, got %v", rel.Level)
	}
}

func TestOpenTrustStoreSynthesizesUnattestedPairs(t *testing.T) {
	store := NewOpenTrustStore(TrustFull)
	rel, ok := store.DirectTrust(did("x"), did("y"), ContextGovernance)
	if !ok || rel.Level != TrustFull {
		t.Fatalf("expected synthesized TrustFull relationship, got %v, %v", rel, ok)
	}
}

func TestOpenTrustStoreHonorsExplicitOverride(t *testing.T) {
	store := NewOpenTrustStore(TrustFull)
	store.Attest(TrustRelationship{Trustor: did("x"), Trustee: did("y"), Context: ContextGovernance, Level: TrustNone})

	rel, ok := store.DirectTrust(did("x"), did("y"), ContextGovernance)
	if !ok {
		t.Fatal("expected open store to still report a relationship")
	}
	if rel.Level != TrustNone {
		t.Fatalf("expected explicit override to win over open synthesis, got %v", rel.Level)
	}
}

func TestFederationMembershipAndBridgesRoundTrip(t *testing.T) {
	store := NewMemoryTrustStore()
	store.Join(did("member"), "fed-a")
	store.AttestFederation("fed-a", TrustRelationship{Trustee: did("target"), Context: ContextGovernance, Level: TrustBasic})
	store.AddBridge(FederationBridge{FromFederation: "fed-a", ToFederation: "fed-b"})

	feds := store.FederationsOf(did("member"))
	if len(feds) != 1 || feds[0] != "fed-a" {
		t.Fatalf("expected [fed-a], got %v", feds)
	}
	rel, ok := store.FederationTrust("fed-a", did("target"), ContextGovernance)
	if !ok || rel.Level != TrustBasic {
		t.Fatalf("expected federation trust TrustBasic, got %v, %v", rel, ok)
	}
	bridges := store.Bridges("fed-a")
	if len(bridges) != 1 || bridges[0].ToFederation != "fed-b" {
		t.Fatalf("expected one bridge to fed-b, got %v", bridges)
	}
}
