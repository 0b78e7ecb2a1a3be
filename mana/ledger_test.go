package mana

import (
	"errors"
	"testing"

	"github.com/icn-project/icn-core/icnerr"
)

func TestCreditAndSpendAdjustBalance(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 100)
	if got := l.GetBalance("did:key:alice"); got != 100 {
		t.Fatalf("expected balance 100, got %d", got)
	}
	if err := l.Spend("did:key:alice", 40); err != nil {
		t.Fatalf("Spend: %v", err)
	}
	if got := l.GetBalance("did:key:alice"); got != 60 {
		t.Fatalf("expected balance 60 after spend, got %d", got)
	}
}

func TestSpendInsufficientFundsReturnsSentinel(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 10)
	err := l.Spend("did:key:alice", 20)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, icnerr.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := l.GetBalance("did:key:alice"); got != 10 {
		t.Fatalf("failed spend must not change balance, got %d", got)
	}
}

func TestBalanceNeverGoesNegative(t *testing.T) {
	c := newPnCounter()
	c.negative["node-a"] = 50
	if got := c.balance(); got != 0 {
		t.Fatalf("expected balance clamped to 0, got %d", got)
	}
}

func TestSetBalanceOverwritesThisNodesContribution(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 100)
	l.SetBalance("did:key:alice", 25)
	if got := l.GetBalance("did:key:alice"); got != 25 {
		t.Fatalf("expected balance 25 after SetBalance, got %d", got)
	}
}

func TestMergeIsCommutativeAssociativeAndIdempotent(t *testing.T) {
	a := NewLedger("node-a", false)
	a.Credit("did:key:alice", 10)
	b := NewLedger("node-b", false)
	b.Credit("did:key:alice", 7)
	b.Credit("did:key:bob", 3)

	ab := NewLedger("node-a", false)
	ab.Merge(a)
	ab.Merge(b)

	ba := NewLedger("node-b", false)
	ba.Merge(b)
	ba.Merge(a)

	if ab.GetBalance("did:key:alice") != ba.GetBalance("did:key:alice") {
		t.Fatal("merge order should not change the resulting balance (commutativity)")
	}
	if ab.GetBalance("did:key:alice") != 17 {
		t.Fatalf("expected merged alice balance 17, got %d", ab.GetBalance("did:key:alice"))
	}

	before := ab.GetBalance("did:key:alice")
	ab.Merge(a)
	if ab.GetBalance("did:key:alice") != before {
		t.Fatal("re-merging the same replica state must be idempotent")
	}
}

func TestCreditAllAppliesToEveryKnownAccount(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 1)
	l.Credit("did:key:bob", 1)
	l.CreditAll(5)
	if l.GetBalance("did:key:alice") != 6 || l.GetBalance("did:key:bob") != 6 {
		t.Fatalf("expected both accounts credited by 5, got alice=%d bob=%d", l.GetBalance("did:key:alice"), l.GetBalance("did:key:bob"))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 42)
	snap := l.TakeSnapshot()

	restored := NewLedger("node-a", false)
	restored.LoadSnapshot(snap)
	if got := restored.GetBalance("did:key:alice"); got != 42 {
		t.Fatalf("expected restored balance 42, got %d", got)
	}
}

func TestEventsOnlyRecordedWhenAuditLogEnabled(t *testing.T) {
	l := NewLedger("node-a", false)
	l.Credit("did:key:alice", 1)
	if len(l.Events()) != 0 {
		t.Fatal("expected no events when audit log is disabled")
	}

	audited := NewLedger("node-a", true)
	audited.Credit("did:key:alice", 1)
	events := audited.Events()
	if len(events) != 1 || events[0].Kind != EventCredit {
		t.Fatalf("expected one Credit event, got %v", events)
	}
}
