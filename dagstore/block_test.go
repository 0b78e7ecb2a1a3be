package dagstore

import (
	"testing"
	"time"
)

func TestNewBlockStampsVerifiableCid(t *testing.T) {
	b, err := NewBlock(CodecRaw, []byte("hello"), nil, time.Unix(0, 0).UTC(), "", nil, "")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if !b.VerifyCid() {
		t.Fatal("expected a freshly stamped block to verify")
	}
}

func TestVerifyCidDetectsTampering(t *testing.T) {
	b, err := NewBlock(CodecRaw, []byte("hello"), nil, time.Unix(0, 0).UTC(), "", nil, "")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	b.Data = []byte("tampered")
	if b.VerifyCid() {
		t.Fatal("expected tampered data to fail CID verification")
	}
}

func TestSameContentYieldsSameCid(t *testing.T) {
	ts := time.Unix(1000, 0).UTC()
	a, err := NewBlock(CodecRaw, []byte("same"), nil, ts, "author", nil, "scope-a")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	b, err := NewBlock(CodecRaw, []byte("same"), nil, ts, "author", nil, "scope-a")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if !a.Cid.Equals(b.Cid) {
		t.Fatal("expected identical block fields to produce identical CIDs")
	}
}

func TestDifferentScopeYieldsDifferentCid(t *testing.T) {
	ts := time.Unix(1000, 0).UTC()
	a, err := NewBlock(CodecRaw, []byte("same"), nil, ts, "author", nil, "scope-a")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	b, err := NewBlock(CodecRaw, []byte("same"), nil, ts, "author", nil, "scope-b")
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if a.Cid.Equals(b.Cid) {
		t.Fatal("expected different scope to change the CID")
	}
}

func TestResultCidIsDeterministic(t *testing.T) {
	a, err := ResultCid([]byte("payload"))
	if err != nil {
		t.Fatalf("ResultCid: %v", err)
	}
	b, err := ResultCid([]byte("payload"))
	if err != nil {
		t.Fatalf("ResultCid: %v", err)
	}
	if !a.Equals(b) {
		t.Fatal("expected ResultCid to be deterministic over identical bytes")
	}
}
