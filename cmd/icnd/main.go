// Command icnd runs a single ICN federation member node: the mana ledger,
// DAG store, trust/governance engines, WASM executor, and router
// collaborators wired together by runtime.NewContext, following the
// teacher's cmd/nhb convention of a single composition-root main.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/observability/logging"
	"github.com/icn-project/icn-core/runtime"
	"github.com/icn-project/icn-core/storage"
)

func main() {
	configFile := flag.String("config", "./icnd.toml", "Path to the node configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ICN_ENV"))
	logger := logging.Setup("icnd", env)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := openBackend(cfg)
	if err != nil {
		logger.Error("failed to open storage backend", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	persist, err := openPersistentStore(cfg)
	if err != nil {
		logger.Error("failed to open checkpoint/archive store", slog.Any("error", err))
		os.Exit(1)
	}
	if persist != nil {
		defer persist.Close()
	}

	sk, did, err := loadSigningIdentity(cfg)
	if err != nil {
		logger.Error("failed to load signing identity", slog.Any("error", err))
		os.Exit(1)
	}

	rcfg := runtime.Config{
		NodeID:        cfg.NodeID,
		FederationID:  cfg.FederationID,
		AuditLog:      true,
		SigningKey:    sk,
		ExecutorDid:   did,
		TrustResolver: &identity.KeyMethodResolver{},
		// Open until a registrar or attestation CLI path exists to
		// populate member-to-member trust explicitly; see DESIGN.md.
		TrustStore:      identity.NewOpenTrustStore(identity.TrustFull),
		PolicyRules:     governance.DefaultPolicyRules(),
		PersistentStore: persist,
	}
	rt, err := runtime.NewContext(db, rcfg)
	if err != nil {
		logger.Error("failed to wire runtime context", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("icnd started",
		slog.String("node_id", cfg.NodeID),
		slog.String("federation_id", cfg.FederationID),
		slog.String("did", did.String()),
		slog.String("listen", cfg.ListenAddr),
	)

	_ = rt

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	logger.Info("icnd shutting down")
}

func openBackend(cfg Config) (storage.Database, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "mem":
		return storage.NewMemDB(), nil
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("icnd: prepare data dir: %w", err)
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "icnd.bolt"))
	case "leveldb":
		return storage.NewLevelDB(cfg.DataDir)
	default:
		return nil, fmt.Errorf("icnd: unknown backend %q", cfg.Backend)
	}
}

// openPersistentStore opens the checkpoint/archive-shard SQLite side table
// next to the primary backend. A "mem" backend has no durable data dir to
// anchor it in, so it runs with checkpoints/archive shards in memory only.
func openPersistentStore(cfg Config) (*storage.SQLiteStore, error) {
	if strings.ToLower(cfg.Backend) == "" || strings.ToLower(cfg.Backend) == "mem" {
		return nil, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("icnd: prepare data dir: %w", err)
	}
	return storage.NewSQLiteStore(filepath.Join(cfg.DataDir, "icnd-checkpoints.sqlite"))
}

func loadSigningIdentity(cfg Config) (*crypto.SigningKey, identity.Did, error) {
	seed, err := hex.DecodeString(cfg.SigningKey)
	if err != nil {
		return nil, identity.Did{}, fmt.Errorf("icnd: decode signing key: %w", err)
	}
	sk, err := crypto.SigningKeyFromSeed(seed)
	if err != nil {
		return nil, identity.Did{}, fmt.Errorf("icnd: load signing key: %w", err)
	}
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		return nil, identity.Did{}, fmt.Errorf("icnd: derive did: %w", err)
	}
	did, err := identity.ParseDid(didKey)
	if err != nil {
		return nil, identity.Did{}, fmt.Errorf("icnd: parse did: %w", err)
	}
	return sk, did, nil
}
