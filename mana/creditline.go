package mana

import (
	"fmt"
	"sync"
	"time"

	"github.com/icn-project/icn-core/icnerr"
)

// CreditLine is a bilateral mutual-credit relationship: creditor extends up
// to Limit of negative balance to debtor, independent of the debtor's own
// mana regeneration.
type CreditLine struct {
	Creditor   Did
	Debtor     Did
	Limit      uint64
	Used       uint64
	OpenedAt   time.Time
	LastUsedAt time.Time
}

// Available returns the remaining headroom on the line.
func (c CreditLine) Available() uint64 {
	if c.Used >= c.Limit {
		return 0
	}
	return c.Limit - c.Used
}

func creditLineKey(creditor, debtor Did) string {
	return string(creditor) + "->" + string(debtor)
}

// CreditLineBook tracks the set of mutual credit lines extended between
// accounts, layered on top of a Ledger's PN-counter balances.
type CreditLineBook struct {
	mu    sync.Mutex
	lines map[string]*CreditLine
}

// NewCreditLineBook constructs an empty book.
func NewCreditLineBook() *CreditLineBook {
	return &CreditLineBook{lines: make(map[string]*CreditLine)}
}

// Open establishes or replaces a credit line from creditor to debtor with
// the given limit.
func (b *CreditLineBook) Open(creditor, debtor Did, limit uint64, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := creditLineKey(creditor, debtor)
	existing, ok := b.lines[key]
	if ok {
		existing.Limit = limit
		return
	}
	b.lines[key] = &CreditLine{Creditor: creditor, Debtor: debtor, Limit: limit, OpenedAt: now}
}

// Get returns the credit line from creditor to debtor, if any.
func (b *CreditLineBook) Get(creditor, debtor Did) (CreditLine, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lines[creditLineKey(creditor, debtor)]
	if !ok {
		return CreditLine{}, false
	}
	return *l, true
}

// Draw draws amount against the creditor->debtor line, failing with
// ErrInsufficientCredits if it would exceed the limit.
func (b *CreditLineBook) Draw(creditor, debtor Did, amount uint64, now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lines[creditLineKey(creditor, debtor)]
	if !ok {
		return fmt.Errorf("mana: %w: no credit line from %s to %s", icnerr.ErrInsufficientCredits, creditor, debtor)
	}
	if l.Available() < amount {
		return fmt.Errorf("mana: %w", icnerr.ErrInsufficientCredits)
	}
	l.Used += amount
	l.LastUsedAt = now
	return nil
}

// Repay reduces the used portion of a credit line, floored at zero.
func (b *CreditLineBook) Repay(creditor, debtor Did, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lines[creditLineKey(creditor, debtor)]
	if !ok {
		return
	}
	if amount >= l.Used {
		l.Used = 0
		return
	}
	l.Used -= amount
}

// SpendWithCredit attempts to spend amount from did's ledger balance first,
// falling back to the pooled available credit of the supplied credit lines
// (in order) for any shortfall.
func SpendWithCredit(l *Ledger, book *CreditLineBook, did Did, amount uint64, fromCreditors []Did, now time.Time) error {
	balance := l.GetBalance(did)
	if balance >= amount {
		return l.Spend(did, amount)
	}
	shortfall := amount - balance
	if balance > 0 {
		if err := l.Spend(did, balance); err != nil {
			return err
		}
	}
	for _, creditor := range fromCreditors {
		if shortfall == 0 {
			break
		}
		line, ok := book.Get(creditor, did)
		if !ok {
			continue
		}
		draw := shortfall
		if avail := line.Available(); avail < draw {
			draw = avail
		}
		if draw == 0 {
			continue
		}
		if err := book.Draw(creditor, did, draw, now); err != nil {
			continue
		}
		shortfall -= draw
	}
	if shortfall > 0 {
		return fmt.Errorf("mana: %w", icnerr.ErrInsufficientCredits)
	}
	return nil
}
