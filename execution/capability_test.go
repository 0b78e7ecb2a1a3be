package execution

import "testing"

func TestCapabilitySetHasGrantRevoke(t *testing.T) {
	cs := DefaultCapabilities.Clone()
	if !cs.Has(CapEmitEvents) {
		t.Fatalf("expected default capabilities to include EmitEvents")
	}
	if cs.Has(CapTransferMana) {
		t.Fatalf("expected default capabilities to exclude TransferMana")
	}

	cs.Grant(CapTransferMana)
	if !cs.Has(CapTransferMana) {
		t.Fatalf("expected TransferMana granted")
	}

	cs.Revoke(CapTransferMana)
	if cs.Has(CapTransferMana) {
		t.Fatalf("expected TransferMana revoked")
	}
}

func TestCapabilitySetCloneIsIndependent(t *testing.T) {
	cs := DefaultCapabilities.Clone()
	clone := cs.Clone()
	clone.Grant(CapGovernanceAdmin)
	if cs.Has(CapGovernanceAdmin) {
		t.Fatalf("expected clone mutation not to affect original")
	}
}
