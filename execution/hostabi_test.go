package execution

import (
	"errors"
	"testing"
	"time"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
)

type fakeLedger struct {
	balances map[string]uint64
}

func newFakeLedger() *fakeLedger { return &fakeLedger{balances: make(map[string]uint64)} }

func (f *fakeLedger) GetBalance(did identity.Did) uint64 { return f.balances[did.String()] }

func (f *fakeLedger) Spend(did identity.Did, amount uint64) error {
	if f.balances[did.String()] < amount {
		return icnerr.ErrInsufficientMana
	}
	f.balances[did.String()] -= amount
	return nil
}

func (f *fakeLedger) Credit(did identity.Did, amount uint64) {
	f.balances[did.String()] += amount
}

type fakeDag struct {
	blobs map[string][]byte
}

func newFakeDag() *fakeDag { return &fakeDag{blobs: make(map[string][]byte)} }

func (f *fakeDag) PutRaw(data []byte, links []string) (string, error) {
	cid, err := ResultCidFor(data)
	if err != nil {
		return "", err
	}
	f.blobs[cid] = data
	return cid, nil
}

func (f *fakeDag) GetRaw(cidStr string) ([]byte, bool) {
	data, ok := f.blobs[cidStr]
	return data, ok
}

func testDid(id string) identity.Did { return identity.Did{Method: "key", ID: id} }

func TestTransferManaRequiresCapability(t *testing.T) {
	ledger := newFakeLedger()
	from := testDid("zFrom00000000000000000000000000000000000")
	to := testDid("zTo000000000000000000000000000000000000")
	ledger.Credit(from, 100)

	host := &HostContext{Ledger: ledger, Capabilities: CapabilitySet{}}
	err := host.TransferMana(from, to, 10)
	var permErr *icnerr.PermissionDeniedError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected permission denied, got %v", err)
	}

	host.Capabilities = CapabilitySet{CapTransferMana: true}
	if err := host.TransferMana(from, to, 10); err != nil {
		t.Fatalf("expected transfer to succeed once granted: %v", err)
	}
	if ledger.GetBalance(to) != 10 {
		t.Fatalf("expected recipient credited, got %d", ledger.GetBalance(to))
	}
}

func TestGetDagNotFoundSurfacesSentinel(t *testing.T) {
	host := &HostContext{Dag: newFakeDag(), Capabilities: CapabilitySet{CapReadDag: true}}
	_, err := host.GetDag("bafkreimissing")
	if !errors.Is(err, icnerr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutDagRoundTrip(t *testing.T) {
	host := &HostContext{Dag: newFakeDag(), Capabilities: CapabilitySet{CapWriteDag: true, CapReadDag: true}}
	cid, err := host.PutDag([]byte("payload"), nil)
	if err != nil {
		t.Fatalf("put dag: %v", err)
	}
	got, err := host.GetDag(cid)
	if err != nil {
		t.Fatalf("get dag: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestEmitEventCountsAgainstLimit(t *testing.T) {
	host := &HostContext{
		Capabilities: CapabilitySet{CapEmitEvents: true},
		Limits:       ResourceLimits{MaxEventsPerCall: 2, WallClockTimeout: time.Second},
	}
	if err := host.EmitEvent("a", nil); err != nil {
		t.Fatalf("event 1: %v", err)
	}
	if err := host.EmitEvent("b", nil); err != nil {
		t.Fatalf("event 2: %v", err)
	}
	err := host.EmitEvent("c", nil)
	var resErr *icnerr.ResourceLimitError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected resource limit error, got %v", err)
	}
}

func TestConsumeComputeEnforcesBudget(t *testing.T) {
	host := &HostContext{Limits: ResourceLimits{MaxComputeUnits: 100}}
	if err := host.ConsumeCompute(60); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	err := host.ConsumeCompute(60)
	if !errors.Is(err, icnerr.ErrResourceLimitExceeded) {
		t.Fatalf("expected resource limit exceeded, got %v", err)
	}
}

func TestDeterministicRandomIsSeedAndEpochStable(t *testing.T) {
	host := &HostContext{Epoch: fixedEpoch(5)}
	a := host.DeterministicRandom(1)
	b := host.DeterministicRandom(1)
	if a != b {
		t.Fatalf("expected deterministic output for same seed/epoch")
	}
	c := host.DeterministicRandom(2)
	if a == c {
		t.Fatalf("expected distinct seeds to diverge")
	}
}

type fixedEpoch uint64

func (f fixedEpoch) CurrentEpoch() uint64 { return uint64(f) }
