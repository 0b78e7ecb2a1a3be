package dagstore

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/storage"
)

// ProofType identifies the quorum mechanism backing a checkpoint.
type ProofType string

const (
	ProofBFT      ProofType = "BFT"
	ProofPoS      ProofType = "PoS"
	ProofMultiSig ProofType = "MultiSig"
)

// ValidatorSignature pairs a validator DID with its signature over the
// checkpoint's signable bytes.
type ValidatorSignature struct {
	Validator string
	Signature []byte
}

// CheckpointProof bundles the quorum signatures and structural proofs.
type CheckpointProof struct {
	Type               ProofType
	ValidatorSignatures []ValidatorSignature
	StateProof         []byte // opaque Merkle proof over state_root
	DagProof           []byte // opaque Merkle proof over dag_root
	ZkProof            []byte // optional
}

// EconomicSummary and GovernanceSummary are opaque, checkpoint-embedded
// digests produced by the mana and governance packages respectively.
type EconomicSummary map[string]string
type GovernanceSummary map[string]string

// Checkpoint is the per-federation, per-epoch state snapshot of spec.md 3.
type Checkpoint struct {
	CheckpointID       string
	FederationID       string
	Epoch              uint64
	StateRoot          cid.Cid
	PrevCheckpoint     string
	DagRoot            [32]byte
	Economic           EconomicSummary
	Governance         GovernanceSummary
	MembershipRoot     cid.Cid
	ExternalReferences []string
	FederationDebts    map[string]uint64
	FederationCredits  map[string]uint64
	Proposer           string
	ValidatorSignatures []ValidatorSignature
	Timestamp          time.Time
	BlockCount         int
	TxCount            int
	Proof              CheckpointProof
}

// CheckpointIDFor builds the canonical "{federation}:{epoch}" id.
func CheckpointIDFor(federationID string, epoch uint64) string {
	return fmt.Sprintf("%s:%d", federationID, epoch)
}

// GenesisCheckpointID is the sentinel predecessor for epoch 0.
const GenesisCheckpointID = "genesis:0"

// SignableBytes is the canonical byte form validator signatures cover:
// checkpoint id, state root, and dag root concatenated.
func (c Checkpoint) SignableBytes() []byte {
	buf := []byte(c.CheckpointID)
	buf = append(buf, c.StateRoot.Bytes()...)
	buf = append(buf, c.DagRoot[:]...)
	return buf
}

// QuorumThreshold returns floor(2n/3)+1 for n validators.
func QuorumThreshold(n int) int {
	return (2*n)/3 + 1
}

// CheckpointManager creates and persists per-federation checkpoints.
type CheckpointManager struct {
	store      *Store
	mu         sync.Mutex
	validators map[string][]string // federation -> ordered validator set
	latest     map[string]Checkpoint
	pending    map[string][]Block

	persist *storage.SQLiteStore
}

// NewCheckpointManager constructs a manager bound to store.
func NewCheckpointManager(store *Store) *CheckpointManager {
	return &CheckpointManager{
		store:      store,
		validators: make(map[string][]string),
		latest:     make(map[string]Checkpoint),
		pending:    make(map[string][]Block),
	}
}

// SetPersistence gives the manager a durable side table for checkpoints in
// addition to its in-memory latest-per-federation cache. A manager without
// persistence configured behaves exactly as before: latest checkpoints only
// survive for the life of the process.
func (m *CheckpointManager) SetPersistence(persist *storage.SQLiteStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persist = persist
}

// SetValidators configures the ordered validator set for round-robin
// proposer selection.
func (m *CheckpointManager) SetValidators(federationID string, validators []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validators[federationID] = append([]string(nil), validators...)
}

// RecordPendingBlock buffers a block as part of the next checkpoint's epoch.
func (m *CheckpointManager) RecordPendingBlock(federationID string, b Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[federationID] = append(m.pending[federationID], b)
}

// Signer produces a validator signature over the checkpoint's signable
// bytes; supplied by the caller (identity package) to keep dagstore free of
// an upward dependency on crypto/identity signing machinery beyond this
// narrow function seam.
type Signer func(validator string, signable []byte) ValidatorSignature

// CreateCheckpoint collects pending blocks since the last checkpoint,
// computes dag_root/state_root/membership_root, selects the round-robin
// proposer, gathers validator signatures, persists, and clears the pending
// buffer. stateRoot and membershipRoot are supplied by the ledger and
// governance packages respectively, since they are opaque to the DAG layer
// per spec.md 4.2.
func (m *CheckpointManager) CreateCheckpoint(federationID string, epoch uint64, stateRoot, membershipRoot cid.Cid, economic EconomicSummary, governance GovernanceSummary, signers []Signer, now time.Time) (Checkpoint, error) {
	m.mu.Lock()
	pending := m.pending[federationID]
	validators := m.validators[federationID]
	prev, hasPrev := m.latest[federationID]
	m.mu.Unlock()

	if hasPrev && epoch <= prev.Epoch {
		return Checkpoint{}, fmt.Errorf("dagstore: %w: epoch must strictly increase", icnerr.ErrDagError)
	}
	prevID := GenesisCheckpointID
	if hasPrev {
		prevID = prev.CheckpointID
	}

	cids := make([]cid.Cid, len(pending))
	for i, b := range pending {
		cids[i] = b.Cid
	}
	dagRoot := dagRootHash(cids)

	var proposer string
	if len(validators) > 0 {
		proposer = validators[int(epoch)%len(validators)]
	}

	cp := Checkpoint{
		CheckpointID:   CheckpointIDFor(federationID, epoch),
		FederationID:   federationID,
		Epoch:          epoch,
		StateRoot:      stateRoot,
		PrevCheckpoint: prevID,
		DagRoot:        dagRoot,
		Economic:       economic,
		Governance:     governance,
		MembershipRoot: membershipRoot,
		Proposer:       proposer,
		Timestamp:      now,
		BlockCount:     len(pending),
	}

	var sigs []ValidatorSignature
	signable := cp.SignableBytes()
	for _, sign := range signers {
		sigs = append(sigs, sign(proposer, signable))
	}
	cp.ValidatorSignatures = sigs
	quorum := QuorumThreshold(len(validators))
	cp.Proof = CheckpointProof{Type: ProofBFT, ValidatorSignatures: sigs}
	if len(sigs) < quorum {
		return Checkpoint{}, fmt.Errorf("dagstore: %w: only %d of required %d validator signatures", icnerr.ErrDagError, len(sigs), quorum)
	}

	m.mu.Lock()
	m.latest[federationID] = cp
	m.pending[federationID] = nil
	persist := m.persist
	m.mu.Unlock()

	if persist != nil {
		payload, err := json.Marshal(cp)
		if err != nil {
			return Checkpoint{}, fmt.Errorf("dagstore: %w: %v", icnerr.ErrSerializationError, err)
		}
		if err := persist.PutCheckpoint(cp.CheckpointID, federationID, epoch, payload); err != nil {
			return Checkpoint{}, fmt.Errorf("dagstore: %w: %v", icnerr.ErrIoError, err)
		}
	}

	return cp, nil
}

// Latest returns the most recently created checkpoint for a federation,
// consulting the in-memory cache first and falling back to the durable side
// table (if configured) on a cold start where the cache is empty.
func (m *CheckpointManager) Latest(federationID string) (Checkpoint, bool) {
	m.mu.Lock()
	cp, ok := m.latest[federationID]
	persist := m.persist
	m.mu.Unlock()
	if ok || persist == nil {
		return cp, ok
	}

	payload, found, err := persist.LatestCheckpoint(federationID)
	if err != nil || !found {
		return Checkpoint{}, false
	}
	var stored Checkpoint
	if err := json.Unmarshal(payload, &stored); err != nil {
		return Checkpoint{}, false
	}

	m.mu.Lock()
	m.latest[federationID] = stored
	m.mu.Unlock()
	return stored, true
}

// dagRootHash computes a SHA-256 chain over sorted CID strings.
func dagRootHash(cids []cid.Cid) [32]byte {
	strs := sortedCidStrings(cids)
	h := sha256.New()
	for _, s := range strs {
		h.Write([]byte(s))
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
