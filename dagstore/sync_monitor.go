package dagstore

import (
	"sort"
	"sync"
	"time"

	"github.com/ipfs/go-cid"
)

// Priority classifies a missing block's urgency.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// MissingBlock tracks a referenced-but-absent CID.
type MissingBlock struct {
	Cid            cid.Cid
	ReferencedBy   map[string]struct{}
	FirstDetected  time.Time
	LastRequested  *time.Time
	RequestCount   int
	Priority       Priority
}

// SyncStats summarizes the store's missing-block health, per spec.md 4.2.
type SyncStats struct {
	TotalBlocks          int
	MissingBlocks        int
	MissingLowPriority    int
	MissingNormalPriority int
	MissingHighPriority   int
	MissingCriticalPriority int
	SyncHealthScore      float64
}

// SyncMonitor implements sync_monitor.check(): maintains the set of missing
// blocks referenced by persisted blocks and computes a sync health score.
type SyncMonitor struct {
	store           *Store
	maxTrackedMissing int

	mu      sync.Mutex
	missing map[string]*MissingBlock
}

// NewSyncMonitor constructs a monitor bound to store with a default
// max-tracked-missing ceiling of 10,000.
func NewSyncMonitor(store *Store) *SyncMonitor {
	return &SyncMonitor{store: store, maxTrackedMissing: 10000, missing: make(map[string]*MissingBlock)}
}

// onPut marks c resolved if it was tracked as missing.
func (m *SyncMonitor) onPut(b Block) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.missing, b.Cid.String())
}

// checkReferences records any of b's links that are not yet persisted as
// newly-discovered missing blocks, classifying their priority per
// spec.md 4.2's rule: Critical if referenced by a block timestamped within
// the last hour; else High if fanout > 10; Normal if > 5 or > 1; Low
// otherwise.
func (m *SyncMonitor) checkReferences(b Block) {
	now := time.Now().UTC()
	recent := now.Sub(b.Timestamp) <= time.Hour

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, link := range b.Links {
		if _, err := m.store.Get(link); err == nil {
			continue
		}
		key := link.String()
		mb, ok := m.missing[key]
		if !ok {
			mb = &MissingBlock{Cid: link, ReferencedBy: map[string]struct{}{}, FirstDetected: now}
			m.missing[key] = mb
		}
		mb.ReferencedBy[b.Cid.String()] = struct{}{}
		fanout := len(mb.ReferencedBy)
		switch {
		case recent:
			mb.Priority = PriorityCritical
		case fanout > 10:
			mb.Priority = PriorityHigh
		case fanout > 1:
			mb.Priority = PriorityNormal
		default:
			mb.Priority = PriorityLow
		}
	}
	m.evictIfOverflowLocked()
}

// evictIfOverflowLocked drops the oldest low-priority entries once tracking
// exceeds maxTrackedMissing. Caller must hold m.mu.
func (m *SyncMonitor) evictIfOverflowLocked() {
	if len(m.missing) <= m.maxTrackedMissing {
		return
	}
	type cand struct {
		key string
		mb  *MissingBlock
	}
	var low []cand
	for k, mb := range m.missing {
		if mb.Priority == PriorityLow {
			low = append(low, cand{k, mb})
		}
	}
	sort.Slice(low, func(i, j int) bool { return low[i].mb.FirstDetected.Before(low[j].mb.FirstDetected) })
	over := len(m.missing) - m.maxTrackedMissing
	for i := 0; i < over && i < len(low); i++ {
		delete(m.missing, low[i].key)
	}
}

// Check computes SyncStats over the store's current block set.
func (m *SyncMonitor) Check() (SyncStats, error) {
	blocks, err := m.store.ListBlocks()
	if err != nil {
		return SyncStats{}, err
	}
	existing := make(map[string]struct{}, len(blocks))
	for _, b := range blocks {
		existing[b.Cid.String()] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	missingCount := 0
	stats := SyncStats{TotalBlocks: len(blocks)}
	for _, mb := range m.missing {
		if _, ok := existing[mb.Cid.String()]; ok {
			continue
		}
		missingCount++
		switch mb.Priority {
		case PriorityCritical:
			stats.MissingCriticalPriority++
		case PriorityHigh:
			stats.MissingHighPriority++
		case PriorityNormal:
			stats.MissingNormalPriority++
		default:
			stats.MissingLowPriority++
		}
	}
	stats.MissingBlocks = missingCount

	total := stats.TotalBlocks + missingCount
	var missingRatio float64
	if total > 0 {
		missingRatio = float64(missingCount) / float64(total)
	}
	health := 1 - missingRatio - 0.1*float64(stats.MissingCriticalPriority) - 0.05*float64(stats.MissingHighPriority)
	if health < 0 {
		health = 0
	}
	if health > 1 {
		health = 1
	}
	stats.SyncHealthScore = health
	return stats, nil
}

// Request records a request attempt against a tracked missing block.
func (m *SyncMonitor) Request(c cid.Cid, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mb, ok := m.missing[c.String()]
	if !ok {
		return
	}
	mb.LastRequested = &now
	mb.RequestCount++
}

// Missing returns a snapshot of currently tracked missing blocks.
func (m *SyncMonitor) Missing() []MissingBlock {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MissingBlock, 0, len(m.missing))
	for _, mb := range m.missing {
		out = append(out, *mb)
	}
	return out
}
