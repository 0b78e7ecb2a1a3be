package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

func readRandom(b []byte) (int, error) {
	return rand.Read(b)
}

// Config is icnd's node configuration, loaded from a TOML file following
// the teacher's config.Load convention: missing file writes out a fresh
// default with a freshly generated signing key rather than failing closed.
type Config struct {
	NodeID       string `toml:"NodeID"`
	FederationID string `toml:"FederationID"`
	DataDir      string `toml:"DataDir"`
	Backend      string `toml:"Backend"` // "mem", "bolt", or "leveldb"
	SigningKey   string `toml:"SigningKey"`
	ListenAddr   string `toml:"ListenAddr"`
}

func defaultConfig() Config {
	return Config{
		NodeID:       "icnd-0",
		FederationID: "default-federation",
		DataDir:      "./data",
		Backend:      "bolt",
		ListenAddr:   ":7946",
	}
}

// loadConfig reads path, creating a default config file with a freshly
// generated signing key the first time icnd runs against an empty path.
func loadConfig(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		seed := make([]byte, 32)
		if _, err := readRandom(seed); err != nil {
			return Config{}, fmt.Errorf("icnd: generate signing seed: %w", err)
		}
		cfg.SigningKey = hex.EncodeToString(seed)

		f, err := os.Create(path)
		if err != nil {
			return Config{}, fmt.Errorf("icnd: create default config: %w", err)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return Config{}, fmt.Errorf("icnd: write default config: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("icnd: decode config: %w", err)
	}
	return cfg, nil
}
