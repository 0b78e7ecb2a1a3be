package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/icnerr"
	"github.com/icn-project/icn-core/identity"
)

// Contract is a deployed job's code and metadata.
type Contract struct {
	Code         []byte
	Deployer     identity.Did
	Capabilities CapabilitySet
	ManifestCid  string
}

// Job is the unit of work submitted to execute_job: it references a deployed
// contract's manifest and carries the invocation's resource budget.
type Job struct {
	ManifestCid string
	Limits      ResourceLimits
}

// ContractStore resolves a manifest CID to its stored contract.
type ContractStore interface {
	Get(manifestCid string) (Contract, bool)
	Put(c Contract) (string, error)
}

// Executor deploys and runs WASM jobs on a wasmer-go engine, enforcing
// capabilities and the event and compute-unit limits at host-call boundaries.
// The engine has no metering middleware.
type Executor struct {
	Engine       *wasmer.Engine
	Contracts    ContractStore
	Ledger       LedgerPort
	Dag          DagPort
	Reputation   ReputationPort
	Epoch        EpochPort
	CostParams   DeploymentCostParams
	MinBalance   uint64
	SigningKey   *crypto.SigningKey
	ExecutorDid  identity.Did
}

// NewExecutor constructs an executor around a fresh wasmer engine.
func NewExecutor(contracts ContractStore, ledger LedgerPort, dag DagPort, rep ReputationPort, epoch EpochPort, signingKey *crypto.SigningKey, executorDid identity.Did) *Executor {
	return &Executor{
		Engine:      wasmer.NewEngine(),
		Contracts:   contracts,
		Ledger:      ledger,
		Dag:         dag,
		Reputation:  rep,
		Epoch:       epoch,
		CostParams:  DefaultDeploymentCostParams,
		MinBalance:  100,
		SigningKey:  signingKey,
		ExecutorDid: executorDid,
	}
}

// Deploy validates code, enforces the minimum-balance policy, debits the
// deployment cost, anchors the code in the DAG, and stores the default
// capability set.
func (ex *Executor) Deploy(code []byte, deployer identity.Did, maxMemory uint32) (string, error) {
	if ex.Ledger.GetBalance(deployer) < ex.MinBalance {
		return "", fmt.Errorf("execution: %w: required %d", icnerr.ErrInsufficientMana, ex.MinBalance)
	}
	if err := ValidateCode(code, maxMemory); err != nil {
		return "", err
	}
	store := wasmer.NewStore(ex.Engine)
	module, err := wasmer.NewModule(store, code)
	if err != nil {
		return "", fmt.Errorf("execution: %w: %v", icnerr.ErrSecurityViolation, err)
	}
	for _, imp := range module.Imports() {
		if err := ValidateImportModule(imp.Module()); err != nil {
			return "", err
		}
	}

	cost := ex.CostParams.Cost(len(code))
	if err := ex.Ledger.Spend(deployer, cost); err != nil {
		return "", err
	}

	manifestCid, err := ex.Dag.PutRaw(code, nil)
	if err != nil {
		return "", fmt.Errorf("execution: %w: %v", icnerr.ErrDagError, err)
	}

	_, err = ex.Contracts.Put(Contract{
		Code:         code,
		Deployer:     deployer,
		Capabilities: DefaultCapabilities.Clone(),
		ManifestCid:  manifestCid,
	})
	if err != nil {
		return "", err
	}
	return manifestCid, nil
}

// ExecuteJob fetches the contract named by job.ManifestCid, instantiates it
// under the job's resource limits, binds the host ABI, and invokes the
// exported "run" function, producing a signed Receipt.
func (ex *Executor) ExecuteJob(ctx context.Context, job Job, caller identity.Did) (Receipt, error) {
	contract, ok := ex.Contracts.Get(job.ManifestCid)
	if !ok {
		return Receipt{}, fmt.Errorf("execution: %w: manifest not found", icnerr.ErrNotFound)
	}

	runCtx, cancel := context.WithTimeout(ctx, job.Limits.WallClockTimeout)
	defer cancel()

	host := &HostContext{
		Ledger:       ex.Ledger,
		Dag:          ex.Dag,
		Reputation:   ex.Reputation,
		Epoch:        ex.Epoch,
		Caller:       caller,
		Capabilities: contract.Capabilities,
		Limits:       job.Limits,
	}

	start := time.Now()
	resultBytes, execErr := ex.runInstance(runCtx, contract.Code, host)
	cpuMs := uint64(time.Since(start).Milliseconds())

	receipt := Receipt{
		JobID:       job.ManifestCid,
		ExecutorDid: ex.ExecutorDid,
		CpuMs:       cpuMs,
		Success:     execErr == nil,
	}
	if execErr != nil {
		receipt.ResultCid = ""
	} else {
		resultCid, err := ResultCidFor(resultBytes)
		if err != nil {
			return Receipt{}, fmt.Errorf("execution: %w: %v", icnerr.ErrInternal, err)
		}
		receipt.ResultCid = resultCid
	}
	if ex.SigningKey != nil {
		if err := receipt.Sign(ex.SigningKey); err != nil {
			return Receipt{}, err
		}
	}
	if execErr != nil {
		return receipt, execErr
	}
	return receipt, nil
}

// runInstance compiles and runs the module's exported "run" function,
// returning its result bytes (read from the module's memory export after
// the call, per the teacher's host-memory-read convention) or an
// ExecutionError.
func (ex *Executor) runInstance(ctx context.Context, code []byte, host *HostContext) ([]byte, error) {
	store := wasmer.NewStore(ex.Engine)
	module, err := wasmer.NewModule(store, code)
	if err != nil {
		return nil, &icnerr.ExecutionError{Msg: err.Error()}
	}

	imports := registerHostImports(store, host)
	instance, err := wasmer.NewInstance(module, imports)
	if err != nil {
		return nil, &icnerr.ExecutionError{Msg: err.Error()}
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, &icnerr.ExecutionError{Msg: "wasm memory export missing"}
	}
	host.mem = mem

	run, err := instance.Exports.GetFunction("run")
	if err != nil {
		return nil, &icnerr.ExecutionError{Msg: "missing run"}
	}

	done := make(chan error, 1)
	var result interface{}
	go func() {
		r, callErr := run()
		result = r
		done <- callErr
	}()

	select {
	case <-ctx.Done():
		return nil, &icnerr.ExecutionError{Msg: "wall-clock timeout"}
	case err := <-done:
		if err != nil {
			return nil, &icnerr.ExecutionError{Msg: err.Error()}
		}
	}

	return readResult(mem, result)
}

// readResult interprets run's single i64 return value as a (ptr<<32|len)
// packed pointer into linear memory, the calling convention the host ABI's
// exports use to surface arbitrary-length results.
func readResult(mem *wasmer.Memory, result interface{}) ([]byte, error) {
	packed, ok := result.(int64)
	if !ok {
		return nil, &icnerr.ExecutionError{Msg: "run must return a packed (ptr,len) i64"}
	}
	ptr := uint32(packed >> 32)
	length := uint32(packed & 0xffffffff)
	data := mem.Data()
	if uint64(ptr)+uint64(length) > uint64(len(data)) {
		return nil, &icnerr.ExecutionError{Msg: "result pointer out of bounds"}
	}
	out := make([]byte, length)
	copy(out, data[ptr:ptr+length])
	return out, nil
}
