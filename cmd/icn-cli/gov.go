package main

import (
	"fmt"
	"time"

	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/runtime"
)

func runGovCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Error: gov requires a subcommand")
		printUsage()
		return
	}
	switch args[0] {
	case "propose":
		if len(args) < 3 {
			fmt.Println("Error: gov propose requires a key file and a title")
			printUsage()
			return
		}
		proposeLocally(args[1], args[2])
	case "vote":
		if len(args) < 4 {
			fmt.Println("Error: gov vote requires a proposal id, key file, and yes|no")
			printUsage()
			return
		}
		voteLocally(args[1], args[2], args[3])
	default:
		fmt.Printf("Unknown gov subcommand: %s\n", args[0])
		printUsage()
	}
}

// proposeLocally submits a proposal against a fresh runtime.Stub. Since the
// stub is process-local and not persisted, this rehearses only the submit
// path for operators previewing governance parameters before submitting
// through the node's external RPC surface; the proposal is not finalized.
func proposeLocally(keyFile, title string) {
	sk, err := loadSigningKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading key file: %v\n", err)
		return
	}
	did, err := didFromSigningKey(sk)
	if err != nil {
		fmt.Printf("Error deriving did: %v\n", err)
		return
	}

	rt, err := runtime.NewStub("icn-cli-local")
	if err != nil {
		fmt.Printf("Error starting local runtime: %v\n", err)
		return
	}

	now := time.Now().UTC()
	id, err := rt.Governance.SubmitProposal(did, "stub-federation", identity.ContextGovernance, title, governance.RulePlain, now.Add(24*time.Hour), now)
	if err != nil {
		fmt.Printf("Error submitting proposal: %v\n", err)
		return
	}
	fmt.Printf("Submitted local proposal %s: %q\n", id, title)
	fmt.Println("Note: this proposal exists only in this process; resubmit against a running icnd through its external RPC surface to persist it.")
}

func voteLocally(proposalID, keyFile, choice string) {
	fmt.Println("Note: gov vote rehearses ballot validation only; it cannot find a proposal submitted in a separate icn-cli invocation since the stub runtime is process-local.")
	sk, err := loadSigningKey(keyFile)
	if err != nil {
		fmt.Printf("Error loading key file: %v\n", err)
		return
	}
	did, err := didFromSigningKey(sk)
	if err != nil {
		fmt.Printf("Error deriving did: %v\n", err)
		return
	}

	var opt governance.Option
	switch choice {
	case "yes":
		opt = governance.OptionYes
	case "no":
		opt = governance.OptionNo
	}
	ballot := governance.Ballot{Kind: governance.BallotPlain, PlainOption: opt, Voter: did}
	if !ballot.PlainOption.Valid() {
		fmt.Println("Error: choice must be yes or no")
		return
	}
	fmt.Printf("Prepared a %s ballot for proposal %s from %s\n", choice, proposalID, did.String())
}
