// Command icn-cli is the operator CLI: DID key management, local governance
// proposal/vote rehearsal, and WASM job deploy/run against an
// in-memory runtime.Stub, following the teacher's nhb-cli flat os.Args
// dispatch convention (no RPC client: spec.md treats the HTTP surface as an
// external collaborator, so local dev commands operate on a Stub rather
// than an untyped JSON-RPC call).
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		return
	}

	switch os.Args[1] {
	case "did":
		runDidCommand(os.Args[2:])
	case "gov":
		runGovCommand(os.Args[2:])
	case "job":
		runJobCommand(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
	}
}

func printUsage() {
	fmt.Println("Usage: icn-cli <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  did create <keyfile>                  Generate a signing key and DID")
	fmt.Println("  did show <keyfile>                     Print the DID for an existing key file")
	fmt.Println("  gov propose <keyfile> <title>          Submit a local governance proposal")
	fmt.Println("  gov vote <proposal-id> <keyfile> yes|no  Cast a local vote")
	fmt.Println("  job deploy <keyfile> <wasm-file>       Deploy a WASM contract locally")
	fmt.Println("  job run <keyfile> <manifest-cid>       Execute a deployed job locally")
}
