// Package mana implements the non-speculative computational credit ledger
// (C3): PN-counter CRDT balances with capacity-aware, reputation-weighted
// regeneration and emergency modulation.
package mana

import (
	"fmt"
	"sync"

	"github.com/icn-project/icn-core/icnerr"
)

// Did is a lightweight string alias to avoid an import cycle with identity;
// callers pass identity.Did.String() values.
type Did = string

// pnCounter is a per-account pair of increment-only counters keyed by the
// node that incremented them.
type pnCounter struct {
	positive map[string]uint64 // nodeID -> total credited
	negative map[string]uint64 // nodeID -> total debited
}

func newPnCounter() *pnCounter {
	return &pnCounter{positive: make(map[string]uint64), negative: make(map[string]uint64)}
}

func (c *pnCounter) clone() *pnCounter {
	out := newPnCounter()
	for k, v := range c.positive {
		out.positive[k] = v
	}
	for k, v := range c.negative {
		out.negative[k] = v
	}
	return out
}

func (c *pnCounter) sumPositive() uint64 {
	var sum uint64
	for _, v := range c.positive {
		sum += v
	}
	return sum
}

func (c *pnCounter) sumNegative() uint64 {
	var sum uint64
	for _, v := range c.negative {
		sum += v
	}
	return sum
}

// balance = max(0, sum(positive) - sum(negative)).
func (c *pnCounter) balance() uint64 {
	pos, neg := c.sumPositive(), c.sumNegative()
	if neg >= pos {
		return 0
	}
	return pos - neg
}

// EventKind enumerates the optional audit log entry kinds.
type EventKind string

const (
	EventSetBalance EventKind = "SetBalance"
	EventCredit     EventKind = "Credit"
	EventDebit      EventKind = "Debit"
)

// Event is a single optional audit log entry.
type Event struct {
	Kind   EventKind
	Did    Did
	Amount uint64
}

// Ledger is the PN-counter CRDT mana ledger for a single node replica.
type Ledger struct {
	nodeID string

	mu       sync.RWMutex
	accounts map[Did]*pnCounter
	events   []Event
	auditLog bool
}

// NewLedger constructs a ledger replica identified by nodeID.
func NewLedger(nodeID string, auditLog bool) *Ledger {
	return &Ledger{nodeID: nodeID, accounts: make(map[Did]*pnCounter), auditLog: auditLog}
}

func (l *Ledger) accountLocked(did Did) *pnCounter {
	acc, ok := l.accounts[did]
	if !ok {
		acc = newPnCounter()
		l.accounts[did] = acc
	}
	return acc
}

// GetBalance returns the account's current settled balance.
func (l *Ledger) GetBalance(did Did) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[did]
	if !ok {
		return 0
	}
	return acc.balance()
}

// SetBalance replaces an account's balance via an explicit single-node
// overwrite: it zeroes this node's contribution and re-credits the target
// amount. This is the one mutation not expressed as a monotone CRDT
// operation, matching spec.md 3's "balance is monotone ... except via
// explicit set-balance".
func (l *Ledger) SetBalance(did Did, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accountLocked(did)
	acc.positive[l.nodeID] = amount
	acc.negative[l.nodeID] = 0
	l.recordLocked(Event{Kind: EventSetBalance, Did: did, Amount: amount})
}

// Credit increments the account's positive counter for this node.
func (l *Ledger) Credit(did Did, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accountLocked(did)
	acc.positive[l.nodeID] += amount
	l.recordLocked(Event{Kind: EventCredit, Did: did, Amount: amount})
}

// CreditAll credits every currently-known account by amount (used by
// federation-wide rewards).
func (l *Ledger) CreditAll(amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for did := range l.accounts {
		acc := l.accountLocked(did)
		acc.positive[l.nodeID] += amount
		l.recordLocked(Event{Kind: EventCredit, Did: did, Amount: amount})
	}
}

// Spend debits amount from did, failing with ErrInsufficientFunds if the
// settled balance is insufficient. Spending never drives the balance below
// zero.
func (l *Ledger) Spend(did Did, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc := l.accountLocked(did)
	if acc.balance() < amount {
		return fmt.Errorf("mana: %w", icnerr.ErrInsufficientFunds)
	}
	acc.negative[l.nodeID] += amount
	l.recordLocked(Event{Kind: EventDebit, Did: did, Amount: amount})
	return nil
}

func (l *Ledger) recordLocked(e Event) {
	if l.auditLog {
		l.events = append(l.events, e)
	}
}

// Events returns the optional audit log, if enabled.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// AllAccounts returns every DID with a non-empty counter entry.
func (l *Ledger) AllAccounts() []Did {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Did, 0, len(l.accounts))
	for did := range l.accounts {
		out = append(out, did)
	}
	return out
}

// Merge joins another replica's state into l: the CRDT join is the
// pointwise max on each node's positive and negative counters, which is
// commutative, associative, and idempotent (invariant 4 of spec.md 8).
func (l *Ledger) Merge(other *Ledger) {
	other.mu.RLock()
	snapshot := make(map[Did]*pnCounter, len(other.accounts))
	for did, acc := range other.accounts {
		snapshot[did] = acc.clone()
	}
	otherEvents := append([]Event(nil), other.events...)
	other.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	for did, acc := range snapshot {
		mine := l.accountLocked(did)
		for node, v := range acc.positive {
			if v > mine.positive[node] {
				mine.positive[node] = v
			}
		}
		for node, v := range acc.negative {
			if v > mine.negative[node] {
				mine.negative[node] = v
			}
		}
	}
	if l.auditLog {
		l.events = append(l.events, otherEvents...)
	}
}

// Snapshot captures the full replicated state for persistence, keyed by DID
// string per spec.md 6.
type Snapshot struct {
	NodeID   string
	Accounts map[Did]SnapshotAccount
}

// SnapshotAccount is the persisted form of one account's PN-counter.
type SnapshotAccount struct {
	Positive map[string]uint64
	Negative map[string]uint64
}

// TakeSnapshot exports the ledger's current state.
func (l *Ledger) TakeSnapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := Snapshot{NodeID: l.nodeID, Accounts: make(map[Did]SnapshotAccount, len(l.accounts))}
	for did, acc := range l.accounts {
		out.Accounts[did] = SnapshotAccount{
			Positive: copyMap(acc.positive),
			Negative: copyMap(acc.negative),
		}
	}
	return out
}

// LoadSnapshot replaces the ledger's state with a previously-exported
// snapshot (used on process restart).
func (l *Ledger) LoadSnapshot(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[Did]*pnCounter, len(s.Accounts))
	for did, acc := range s.Accounts {
		l.accounts[did] = &pnCounter{positive: copyMap(acc.Positive), negative: copyMap(acc.Negative)}
	}
}

func copyMap(in map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
