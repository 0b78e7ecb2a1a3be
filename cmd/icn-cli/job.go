package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/icn-project/icn-core/execution"
	"github.com/icn-project/icn-core/runtime"
)

func runJobCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Error: job requires a subcommand")
		printUsage()
		return
	}
	switch args[0] {
	case "deploy":
		if len(args) < 3 {
			fmt.Println("Error: job deploy requires a key file and a wasm file")
			printUsage()
			return
		}
		deployJob(args[1], args[2])
	case "run":
		if len(args) < 3 {
			fmt.Println("Error: job run requires a key file and a manifest cid")
			printUsage()
			return
		}
		runJob(args[1], args[2])
	default:
		fmt.Printf("Unknown job subcommand: %s\n", args[0])
		printUsage()
	}
}

func deployJob(keyFile, wasmFile string) {
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
	code, err := os.ReadFile(wasmFile)
	if err != nil {
		fmt.Printf("Error reading wasm file: %v\n", err)
		return
	}

	rt, err := runtime.NewStub("icn-cli-local")
	if err != nil {
		fmt.Printf("Error starting local runtime: %v\n", err)
		return
	}
	rt.Ledger.Credit(did.String(), rt.Executor.MinBalance+execution.DefaultDeploymentCostParams.Cost(len(code)))

	manifestCid, err := rt.Executor.Deploy(code, did, execution.DefaultResourceLimits.MaxMemoryBytes)
	if err != nil {
		fmt.Printf("Error deploying contract: %v\n", err)
		return
	}
	fmt.Printf("Deployed contract, manifest cid: %s\n", manifestCid)
	fmt.Println("Note: this deployment exists only in this process; redeploy against a running icnd to persist it.")
}

func runJob(keyFile, manifestCid string) {
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

	job := execution.Job{ManifestCid: manifestCid, Limits: execution.DefaultResourceLimits}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	receipt, err := rt.Executor.ExecuteJob(ctx, job, did)
	if err != nil {
		fmt.Printf("Error executing job: %v\n", err)
		return
	}
	fmt.Printf("Job executed: success=%v cpu_ms=%d result_cid=%s\n", receipt.Success, receipt.CpuMs, receipt.ResultCid)
}
