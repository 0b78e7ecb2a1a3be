// Package runtime is the process composition root: it owns the mana
// ledger, DAG store, WASM executor, router, and identity/trust services
// as a single wired graph, the way the teacher's cmd/nhb entrypoint wires
// storage, state, consensus, and p2p together in main. Context is built
// once per process by cmd/icnd; NewStub gives tests and cmd/icn-cli an
// in-memory equivalent without a real backing store.
package runtime

import (
	"time"

	"github.com/ipfs/go-cid"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/dagstore"
	"github.com/icn-project/icn-core/execution"
	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/mana"
	"github.com/icn-project/icn-core/reputation"
	"github.com/icn-project/icn-core/router"
	"github.com/icn-project/icn-core/storage"
)

// Context is the fully wired set of node-local services. Every field except
// ContractStore is a concrete collaborator rather than an interface: callers
// that need to substitute a fake for one collaborator should build one with
// NewStub instead of hand-assembling a partial Context.
type Context struct {
	NodeID string

	Ledger      *mana.Ledger
	Dag         *dagstore.Store
	Checkpoints *dagstore.CheckpointManager
	Archive     *dagstore.ArchiveCoopManager
	Trust       *identity.Engine
	Governance  *governance.Engine
	Reputation  *reputation.Tracker
	Executor    *execution.Executor

	Breakers  *router.CircuitBreakerRegistry
	Partition *router.PartitionDetector

	ContractStore execution.ContractStore
}

// Config carries the process-wide settings needed to build a Context.
type Config struct {
	NodeID       string
	FederationID string
	AuditLog     bool
	SigningKey   *crypto.SigningKey
	ExecutorDid  identity.Did

	TrustResolver identity.Resolver
	TrustStore    identity.TrustStore
	PolicyRules   map[string]identity.PolicyRule

	Federation governance.FederationSizer
	Anchor     governance.Anchorer
	Params     governance.ParamStore

	// ArchiveConfig bounds the erasure-coding scheme for cooperative
	// archival storage. Zero value falls back to dagstore.DefaultErasureConfig.
	ArchiveConfig dagstore.ErasureConfig

	// PersistentStore, if set, backs checkpoints and archive shards with a
	// durable SQLite side table instead of process-memory only. Nil is a
	// valid, fully-functional configuration for tests and the in-memory stub.
	PersistentStore *storage.SQLiteStore
}

// NewContext wires a Context over db, the chosen storage.Database backend
// (MemDB for tests, BoltDB or LevelDB in production). A SQLiteStore is not a
// storage.Database; it is passed separately as Config.PersistentStore.
func NewContext(db storage.Database, cfg Config) (*Context, error) {
	store, err := dagstore.NewStore(db)
	if err != nil {
		return nil, err
	}

	ledger := mana.NewLedger(cfg.NodeID, cfg.AuditLog)
	trust := identity.NewEngine(cfg.TrustResolver, cfg.TrustStore, cfg.PolicyRules)
	gov := governance.NewEngine(trust, cfg.TrustResolver, cfg.Federation, cfg.Anchor, cfg.Params)
	rep := reputation.NewTracker(reputation.DefaultConfig)
	checkpoints := dagstore.NewCheckpointManager(store)

	archiveCfg := cfg.ArchiveConfig
	if archiveCfg == (dagstore.ErasureConfig{}) {
		archiveCfg = dagstore.DefaultErasureConfig
	}
	archive := dagstore.NewArchiveCoopManager(archiveCfg)

	if cfg.PersistentStore != nil {
		checkpoints.SetPersistence(cfg.PersistentStore)
		archive.SetPersistence(cfg.PersistentStore)
	}

	contracts := execution.NewMemoryContractStore()
	ledgerAdapter := &ledgerPort{ledger: ledger}
	dagAdapter := &dagPort{store: store}
	epochAdapter := &epochPort{checkpoints: checkpoints, federationID: cfg.FederationID}

	exec := execution.NewExecutor(contracts, ledgerAdapter, dagAdapter, rep, epochAdapter, cfg.SigningKey, cfg.ExecutorDid)

	return &Context{
		NodeID:        cfg.NodeID,
		Ledger:        ledger,
		Dag:           store,
		Checkpoints:   checkpoints,
		Archive:       archive,
		Trust:         trust,
		Governance:    gov,
		Reputation:    rep,
		Executor:      exec,
		Breakers:      router.NewCircuitBreakerRegistry(router.DefaultCircuitBreakerConfig),
		Partition:     router.NewPartitionDetector(router.DefaultPartitionConfig),
		ContractStore: contracts,
	}, nil
}

// ledgerPort adapts *mana.Ledger (which keys accounts by the mana.Did string
// alias) to execution.LedgerPort's identity.Did-keyed interface.
type ledgerPort struct {
	ledger *mana.Ledger
}

func (l *ledgerPort) GetBalance(did identity.Did) uint64 {
	return l.ledger.GetBalance(did.String())
}

func (l *ledgerPort) Spend(did identity.Did, amount uint64) error {
	return l.ledger.Spend(did.String(), amount)
}

func (l *ledgerPort) Credit(did identity.Did, amount uint64) {
	l.ledger.Credit(did.String(), amount)
}

// dagPort adapts *dagstore.Store's cid.Cid-typed Put/Get/Anchor to
// execution.DagPort's string-CID interface.
type dagPort struct {
	store *dagstore.Store
}

func (d *dagPort) PutRaw(data []byte, links []string) (string, error) {
	return d.store.Anchor(data, links)
}

func (d *dagPort) GetRaw(cidStr string) ([]byte, bool) {
	c, err := cid.Decode(cidStr)
	if err != nil {
		return nil, false
	}
	b, err := d.store.Get(c)
	if err != nil {
		return nil, false
	}
	return b.Data, true
}

// epochPort surfaces the federation's latest checkpoint epoch to the host
// ABI's current_epoch call, per spec.md 4.5's "current_epoch reads the
// federation's latest finalized checkpoint epoch" semantics.
type epochPort struct {
	checkpoints  *dagstore.CheckpointManager
	federationID string
}

func (e *epochPort) CurrentEpoch() uint64 {
	cp, ok := e.checkpoints.Latest(e.federationID)
	if !ok {
		return 0
	}
	return cp.Epoch
}

// Now is the runtime's wall-clock source, factored out so tests and the
// Stub can substitute a fixed instant.
func Now() time.Time { return time.Now().UTC() }
