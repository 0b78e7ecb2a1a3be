package dagstore

import (
	"path/filepath"
	"testing"

	"github.com/icn-project/icn-core/storage"
)

func testErasureConfig() ErasureConfig {
	return ErasureConfig{DataShards: 2, ParityShards: 1, MinShards: 2, MinRegions: 1, MinNodes: 1}
}

func registeredCooperative(id string) Cooperative {
	return Cooperative{
		ID:                  id,
		CapacityBytes:       20 * (1 << 40),
		AvailabilityPercent: 99.95,
		Regions:             []string{"eu-west"},
		InsurancePool:       100,
	}
}

func TestStoreBlockRequiresMinimumCooperatives(t *testing.T) {
	a := NewArchiveCoopManager(testErasureConfig())
	original, _ := ResultCid([]byte("payload"))
	if _, err := a.StoreBlock(original, []byte("payload")); err == nil {
		t.Fatal("expected StoreBlock to refuse with zero registered cooperatives")
	}
}

func TestEncodeReconstructRoundTrip(t *testing.T) {
	cfg := testErasureConfig()
	original, _ := ResultCid([]byte("the quick brown fox"))
	shards, err := Encode(original, []byte("the quick brown fox"), cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Reconstruct(shards, len("the quick brown fox"), cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if string(got) != "the quick brown fox" {
		t.Fatalf("expected round-tripped data, got %q", got)
	}
}

func TestArchiveCoopManagerSurvivesRestartWithPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	persist, err := storage.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer persist.Close()

	cfg := testErasureConfig()
	before := NewArchiveCoopManager(cfg)
	before.SetPersistence(persist)
	if err := before.RegisterCooperative(registeredCooperative("coop-1")); err != nil {
		t.Fatalf("RegisterCooperative: %v", err)
	}

	data := []byte("archive me across a restart")
	original, _ := ResultCid(data)
	if _, err := before.StoreBlock(original, data); err != nil {
		t.Fatalf("StoreBlock: %v", err)
	}

	// Simulate a process restart: a fresh manager with an empty
	// shardLocations index, wired to the same durable side table.
	after := NewArchiveCoopManager(cfg)
	after.SetPersistence(persist)
	shards, err := after.RetrieveStoredShards(original)
	if err != nil {
		t.Fatalf("RetrieveStoredShards: %v", err)
	}
	got, err := after.RetrieveBlock(shards, len(data))
	if err != nil {
		t.Fatalf("RetrieveBlock: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("expected recovered data %q, got %q", data, got)
	}
}

func TestRetrieveStoredShardsWithoutPersistenceFails(t *testing.T) {
	a := NewArchiveCoopManager(testErasureConfig())
	original, _ := ResultCid([]byte("payload"))
	if _, err := a.RetrieveStoredShards(original); err == nil {
		t.Fatal("expected RetrieveStoredShards to fail without a persistence backend")
	}
}

func TestSlashOnFailedChallengeEvictsBelowThreshold(t *testing.T) {
	a := NewArchiveCoopManager(testErasureConfig())
	c := registeredCooperative("coop-1")
	c.InsurancePool = 1.05
	if err := a.RegisterCooperative(c); err != nil {
		t.Fatalf("RegisterCooperative: %v", err)
	}
	if err := a.SlashOnFailedChallenge("coop-1"); err != nil {
		t.Fatalf("SlashOnFailedChallenge: %v", err)
	}
	if _, ok := a.coops["coop-1"]; ok {
		t.Fatal("expected coop-1 to be evicted once its insurance pool fell below the threshold")
	}
	if err := a.RegisterCooperative(registeredCooperative("coop-1")); err != nil {
		t.Fatalf("expected coop-1 to have been evicted and re-registrable, got: %v", err)
	}
}

func TestSlashOnFailedChallengeUnknownCooperative(t *testing.T) {
	a := NewArchiveCoopManager(testErasureConfig())
	if err := a.SlashOnFailedChallenge("ghost"); err == nil {
		t.Fatal("expected an error slashing an unregistered cooperative")
	}
}
