package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/identity"
)

func runDidCommand(args []string) {
	if len(args) < 2 {
		fmt.Println("Error: did requires a subcommand and a key file")
		printUsage()
		return
	}
	switch args[0] {
	case "create":
		createDid(args[1])
	case "show":
		showDid(args[1])
	default:
		fmt.Printf("Unknown did subcommand: %s\n", args[0])
		printUsage()
	}
}

func createDid(keyFile string) {
	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		fmt.Printf("Error generating signing key: %v\n", err)
		return
	}
	if err := saveSigningKey(keyFile, sk); err != nil {
		fmt.Printf("Error saving key file: %v\n", err)
		return
	}
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		fmt.Printf("Error deriving did: %v\n", err)
		return
	}
	fmt.Printf("Generated new signing key and saved to %s\n", keyFile)
	fmt.Printf("Your DID is: %s\n", didKey)
}

func showDid(keyFile string) {
	sk, err := loadSigningKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading key file: %v\n", err)
		return
	}
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		fmt.Printf("Error deriving did: %v\n", err)
		return
	}
	fmt.Println(didKey)
}

func saveSigningKey(path string, sk *crypto.SigningKey) error {
	return os.WriteFile(path, []byte(hex.EncodeToString(sk.Seed())), 0o600)
}

func loadSigningKey(path string) (*crypto.SigningKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("icn-cli: decode key file: %w", err)
	}
	return crypto.SigningKeyFromSeed(seed)
}

func didFromSigningKey(sk *crypto.SigningKey) (identity.Did, error) {
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		return identity.Did{}, err
	}
	return identity.ParseDid(didKey)
}
