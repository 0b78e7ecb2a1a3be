package execution

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
)

// LedgerPort is the mana-ledger seam the host ABI's transfer_mana/
// get_balance calls route through.
type LedgerPort interface {
	GetBalance(did identity.Did) uint64
	Spend(did identity.Did, amount uint64) error
	Credit(did identity.Did, amount uint64)
}

// DagPort is the DAG-store seam the host ABI's put_dag/get_dag calls route
// through.
type DagPort interface {
	PutRaw(data []byte, links []string) (string, error)
	GetRaw(cidStr string) ([]byte, bool)
}

// ReputationPort backs host_get_reputation.
type ReputationPort interface {
	ReputationOf(did identity.Did) int64
}

// EpochPort backs current_epoch, returning the executing node's federation's
// checkpoint epoch.
type EpochPort interface {
	CurrentEpoch() uint64
}

// HostContext bundles every collaborator a job's host ABI calls may reach,
// plus the caller identity and granted capability set for gating.
type HostContext struct {
	Ledger     LedgerPort
	Dag        DagPort
	Reputation ReputationPort
	Epoch      EpochPort

	Caller       identity.Did
	Capabilities CapabilitySet
	Limits       ResourceLimits

	// mem is bound after instantiation (Executor.runInstance sets it once
	// the module's memory export is available), matching the teacher's
	// registerHost/hostCtx convention of wiring closures before the
	// memory they read from exists.
	mem *wasmer.Memory

	eventsEmitted uint32
	computeUsed   uint64
}

// readMem copies ln bytes starting at ptr out of the job's linear memory.
func (h *HostContext) readMem(ptr, ln int32) []byte {
	data := h.mem.Data()
	out := make([]byte, ln)
	copy(out, data[ptr:ptr+ln])
	return out
}

// writeMem copies data into the job's linear memory starting at ptr.
func (h *HostContext) writeMem(ptr int32, data []byte) {
	copy(h.mem.Data()[ptr:], data)
}

func (h *HostContext) requireCapability(cap Capability) error {
	if !h.Capabilities.Has(cap) {
		return &icnerr.PermissionDeniedError{Cap: icnerr.Capability(cap)}
	}
	return nil
}

// TransferMana implements the transfer_mana host call, gated by
// TransferMana.
func (h *HostContext) TransferMana(from, to identity.Did, amount uint64) error {
	if err := h.requireCapability(CapTransferMana); err != nil {
		return err
	}
	if err := h.Ledger.Spend(from, amount); err != nil {
		return err
	}
	h.Ledger.Credit(to, amount)
	return nil
}

// GetBalance implements get_balance.
func (h *HostContext) GetBalance(did identity.Did) uint64 {
	return h.Ledger.GetBalance(did)
}

// PutDag implements put_dag, gated by WriteDag.
func (h *HostContext) PutDag(data []byte, links []string) (string, error) {
	if err := h.requireCapability(CapWriteDag); err != nil {
		return "", err
	}
	return h.Dag.PutRaw(data, links)
}

// GetDag implements get_dag, gated by ReadDag.
func (h *HostContext) GetDag(cidStr string) ([]byte, error) {
	if err := h.requireCapability(CapReadDag); err != nil {
		return nil, err
	}
	data, ok := h.Dag.GetRaw(cidStr)
	if !ok {
		return nil, icnerr.ErrNotFound
	}
	return data, nil
}

// CurrentEpoch implements current_epoch.
func (h *HostContext) CurrentEpoch() uint64 {
	if h.Epoch == nil {
		return 0
	}
	return h.Epoch.CurrentEpoch()
}

// EmitEvent implements emit_event, gated by EmitEvents and counted against
// max_events_per_call.
func (h *HostContext) EmitEvent(topic string, data []byte) error {
	if err := h.requireCapability(CapEmitEvents); err != nil {
		return err
	}
	if h.eventsEmitted >= h.Limits.MaxEventsPerCall {
		return &icnerr.ResourceLimitError{Kind: "event_count"}
	}
	h.eventsEmitted++
	return nil
}

// HostGetReputation implements host_get_reputation.
func (h *HostContext) HostGetReputation(did identity.Did) int64 {
	if h.Reputation == nil {
		return 0
	}
	return h.Reputation.ReputationOf(did)
}

// DeterministicRandom hashes a caller-supplied seed with the current epoch,
// the only source of "randomness" a job may observe, since system time and
// wall-clock entropy are forbidden (spec.md 4.5's determinism rule).
func (h *HostContext) DeterministicRandom(seed uint64) [32]byte {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], h.CurrentEpoch())
	return sha256.Sum256(buf[:])
}

// ConsumeCompute charges units against the call's compute-unit budget,
// returning a resource-limit error once exhausted.
func (h *HostContext) ConsumeCompute(units uint64) error {
	h.computeUsed += units
	if h.computeUsed > h.Limits.MaxComputeUnits {
		return &icnerr.ResourceLimitError{Kind: "compute_units"}
	}
	return nil
}
