package dagstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/klauspost/reedsolomon"

	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/storage"
)

// DefaultErasureConfig holds the default coding parameters from spec.md 6.
var DefaultErasureConfig = ErasureConfig{
	DataShards:   10,
	ParityShards: 7,
	MinShards:    10,
	MinRegions:   3,
	MinNodes:     5,
}

// ErasureConfig bounds the Reed-Solomon scheme and the archive's
// geographic/node distribution requirements.
type ErasureConfig struct {
	DataShards   int
	ParityShards int
	MinShards    int
	MinRegions   int
	MinNodes     int
}

// Shard is a single erasure-coded piece of an archived block.
type Shard struct {
	ShardID     string
	Data        []byte
	OriginalCid cid.Cid
	ShardIndex  int
	TotalShards int
	Checksum    string
}

func shardID(original cid.Cid, index int) string {
	return fmt.Sprintf("%s:%d", original.String(), index)
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encode splits data into cfg.DataShards+cfg.ParityShards erasure-coded
// shards using systematic Reed-Solomon coding.
func Encode(original cid.Cid, data []byte, cfg ErasureConfig) ([]Shard, error) {
	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrValidationMismatch, err)
	}
	shards, err := enc.Split(data)
	if err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrValidationMismatch, err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrValidationMismatch, err)
	}
	out := make([]Shard, len(shards))
	for i, s := range shards {
		out[i] = Shard{
			ShardID:     shardID(original, i),
			Data:        s,
			OriginalCid: original,
			ShardIndex:  i,
			TotalShards: cfg.DataShards + cfg.ParityShards,
			Checksum:    checksum(s),
		}
	}
	return out, nil
}

// Reconstruct rebuilds the original data from at least cfg.MinShards valid
// shards (identified by index; missing entries must be nil).
func Reconstruct(shardsByIndex []Shard, totalLen int, cfg ErasureConfig) ([]byte, error) {
	enc, err := reedsolomon.New(cfg.DataShards, cfg.ParityShards)
	if err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrValidationMismatch, err)
	}
	total := cfg.DataShards + cfg.ParityShards
	data := make([][]byte, total)
	present := 0
	for _, s := range shardsByIndex {
		if s.ShardIndex < 0 || s.ShardIndex >= total {
			continue
		}
		if checksum(s.Data) != s.Checksum {
			continue
		}
		data[s.ShardIndex] = s.Data
		present++
	}
	if present < cfg.MinShards {
		return nil, fmt.Errorf("dagstore: %w: insufficient shards: have %d need %d", icnerr.ErrValidationMismatch, present, cfg.MinShards)
	}
	if err := enc.Reconstruct(data); err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrValidationMismatch, err)
	}
	var out []byte
	for _, d := range data[:cfg.DataShards] {
		out = append(out, d...)
	}
	if len(out) < totalLen {
		return nil, fmt.Errorf("dagstore: %w: reconstructed data shorter than expected", icnerr.ErrValidationMismatch)
	}
	return out[:totalLen], nil
}

// Cooperative is a storage-providing federation member eligible to host
// archive shards.
type Cooperative struct {
	ID                  string
	CapacityBytes       uint64
	AvailabilityPercent float64
	Regions             []string
	InsurancePool       float64
}

// meetsRequirements enforces spec.md 4.2's registration thresholds.
func (c Cooperative) meetsRequirements(cfg ErasureConfig) bool {
	const minCapacity = 10 * 1 << 40 // 10 TB
	return c.CapacityBytes >= minCapacity &&
		c.AvailabilityPercent >= 99.9 &&
		len(distinct(c.Regions)) >= cfg.MinRegions
}

func distinct(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Challenge is an audit probe against a specific shard held by a cooperative.
type Challenge struct {
	ShardID     string
	Index       int
	MerkleRoot  [32]byte
	Deadline    time.Time
	Challenger  string
}

// ArchiveCoopManager registers archive cooperatives, stores/retrieves
// erasure-coded blocks, and adjudicates storage challenges.
type ArchiveCoopManager struct {
	cfg ErasureConfig

	mu    sync.Mutex
	coops map[string]*Cooperative
	// shardLocations maps shard id -> cooperative ids hosting it.
	shardLocations map[string][]string

	persist *storage.SQLiteStore
}

// NewArchiveCoopManager constructs a manager using cfg for erasure coding.
func NewArchiveCoopManager(cfg ErasureConfig) *ArchiveCoopManager {
	return &ArchiveCoopManager{cfg: cfg, coops: make(map[string]*Cooperative), shardLocations: make(map[string][]string)}
}

// SetPersistence gives the manager a durable shard table: StoreBlock writes
// every shard's payload through to it, and RetrieveStoredShards can rebuild
// a block's shard set after a process restart without re-querying every
// cooperative.
func (a *ArchiveCoopManager) SetPersistence(persist *storage.SQLiteStore) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.persist = persist
}

// RegisterCooperative admits a cooperative meeting the capacity/
// availability/geographic-distribution thresholds.
func (a *ArchiveCoopManager) RegisterCooperative(c Cooperative) error {
	if !c.meetsRequirements(a.cfg) {
		return fmt.Errorf("dagstore: %w: cooperative does not meet archive requirements", icnerr.ErrValidationMismatch)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.coops[c.ID] = &c
	return nil
}

// StoreBlock erasure-encodes data and distributes shards round-robin across
// at least cfg.MinNodes registered cooperatives.
func (a *ArchiveCoopManager) StoreBlock(original cid.Cid, data []byte) ([]Shard, error) {
	a.mu.Lock()
	n := len(a.coops)
	ids := make([]string, 0, n)
	for id := range a.coops {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	if n < a.cfg.MinNodes {
		return nil, fmt.Errorf("dagstore: %w: need at least %d cooperatives, have %d", icnerr.ErrValidationMismatch, a.cfg.MinNodes, n)
	}
	shards, err := Encode(original, data, a.cfg)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	for i, s := range shards {
		coop := ids[i%len(ids)]
		a.shardLocations[s.ShardID] = append(a.shardLocations[s.ShardID], coop)
	}
	persist := a.persist
	a.mu.Unlock()

	if persist != nil {
		for _, s := range shards {
			if err := persist.PutShard(s.ShardID, original.String(), s.ShardIndex, s.TotalShards, s.Checksum, s.Data); err != nil {
				return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrIoError, err)
			}
		}
	}
	return shards, nil
}

// RetrieveBlock reconstructs data given any cfg.MinShards valid shards.
func (a *ArchiveCoopManager) RetrieveBlock(shards []Shard, totalLen int) ([]byte, error) {
	return Reconstruct(shards, totalLen, a.cfg)
}

// RetrieveStoredShards rebuilds the shard set durably recorded for original,
// for use after a process restart when shardLocations' in-memory index has
// been lost but the persistence side table survives.
func (a *ArchiveCoopManager) RetrieveStoredShards(original cid.Cid) ([]Shard, error) {
	a.mu.Lock()
	persist := a.persist
	a.mu.Unlock()
	if persist == nil {
		return nil, fmt.Errorf("dagstore: %w: no persistence configured", icnerr.ErrNotFound)
	}
	rows, err := persist.ShardsFor(original.String())
	if err != nil {
		return nil, fmt.Errorf("dagstore: %w: %v", icnerr.ErrIoError, err)
	}
	out := make([]Shard, len(rows))
	for i, r := range rows {
		out[i] = Shard{
			ShardID:     r.ShardID,
			Data:        r.Payload,
			OriginalCid: original,
			ShardIndex:  r.Index,
			TotalShards: r.Total,
			Checksum:    r.Checksum,
		}
	}
	return out, nil
}

// SlashOnFailedChallenge removes 10% of a cooperative's insurance pool and
// evicts it once the pool drops below 1.
func (a *ArchiveCoopManager) SlashOnFailedChallenge(coopID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.coops[coopID]
	if !ok {
		return fmt.Errorf("dagstore: %w: unknown cooperative", icnerr.ErrNotFound)
	}
	c.InsurancePool *= 0.9
	if c.InsurancePool < 1 {
		delete(a.coops, coopID)
	}
	return nil
}
