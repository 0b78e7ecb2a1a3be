package execution

import (
	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/icn-project/icn-core/identity"
)

// registerHostImports builds the icn.* import object a job's module links
// against, binding each host-ABI call to a HostContext method. Grounded on
// the teacher's virtual_machine.go registerHost convention: every exported
// function reads its argument bytes out of linear memory via ptr/len pairs
// and writes results back the same way; host.mem is bound once the
// instance's memory export exists (see Executor.runInstance).
func registerHostImports(store *wasmer.Store, host *HostContext) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()

	i32 := wasmer.NewValueTypes(wasmer.I32)
	i32x2 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32)
	i32x4 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)
	i64 := wasmer.NewValueTypes(wasmer.I64)
	none := wasmer.NewValueTypes()

	getBalance := wasmer.NewFunction(store, wasmer.NewFunctionType(i32x2, i64),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			did := decodeDid(host, args[0].I32(), args[1].I32())
			return []wasmer.Value{wasmer.NewI64(int64(host.GetBalance(did)))}, nil
		})

	// transfer_mana(fromPtr,fromLen,toPtr,toLen,amount) -> i32(0=ok,1=denied)
	transferMana := wasmer.NewFunction(store, wasmer.NewFunctionType(
		wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I64), i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			from := decodeDid(host, args[0].I32(), args[1].I32())
			to := decodeDid(host, args[2].I32(), args[3].I32())
			amount := uint64(args[4].I64())
			if err := host.TransferMana(from, to, amount); err != nil {
				return []wasmer.Value{wasmer.NewI32(1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	// emit_event(topicPtr,topicLen,dataPtr,dataLen) -> i32
	emitEvent := wasmer.NewFunction(store, wasmer.NewFunctionType(i32x4, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			topic := string(host.readMem(args[0].I32(), args[1].I32()))
			data := host.readMem(args[2].I32(), args[3].I32())
			if err := host.EmitEvent(topic, data); err != nil {
				return []wasmer.Value{wasmer.NewI32(1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	currentEpoch := wasmer.NewFunction(store, wasmer.NewFunctionType(none, i64),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(int64(host.CurrentEpoch()))}, nil
		})

	consumeCompute := wasmer.NewFunction(store, wasmer.NewFunctionType(i64, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := host.ConsumeCompute(uint64(args[0].I64())); err != nil {
				return []wasmer.Value{wasmer.NewI32(1)}, nil
			}
			return []wasmer.Value{wasmer.NewI32(0)}, nil
		})

	hostGetReputation := wasmer.NewFunction(store, wasmer.NewFunctionType(i32x2, i64),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			did := decodeDid(host, args[0].I32(), args[1].I32())
			return []wasmer.Value{wasmer.NewI64(host.HostGetReputation(did))}, nil
		})

	deterministicRandom := wasmer.NewFunction(store, wasmer.NewFunctionType(
		wasmer.NewValueTypes(wasmer.I64, wasmer.I32), i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			out := host.DeterministicRandom(uint64(args[0].I64()))
			host.writeMem(args[1].I32(), out[:])
			return []wasmer.Value{wasmer.NewI32(int32(len(out)))}, nil
		})

	// put_dag(dataPtr,dataLen,outPtr,outCap) -> i32(cid len, or -1)
	putDag := wasmer.NewFunction(store, wasmer.NewFunctionType(i32x4, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			data := host.readMem(args[0].I32(), args[1].I32())
			cidStr, err := host.PutDag(data, nil)
			if err != nil {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			if int32(len(cidStr)) > args[3].I32() {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			host.writeMem(args[2].I32(), []byte(cidStr))
			return []wasmer.Value{wasmer.NewI32(int32(len(cidStr)))}, nil
		})

	// get_dag(cidPtr,cidLen,outPtr,outCap) -> i32(bytes written, or -1)
	getDag := wasmer.NewFunction(store, wasmer.NewFunctionType(i32x4, i32),
		func(args []wasmer.Value) ([]wasmer.Value, error) {
			cidStr := string(host.readMem(args[0].I32(), args[1].I32()))
			data, err := host.GetDag(cidStr)
			if err != nil {
				return []wasmer.Value{wasmer.NewI32(-1)}, nil
			}
			outCap := args[3].I32()
			if int32(len(data)) > outCap {
				data = data[:outCap]
			}
			host.writeMem(args[2].I32(), data)
			return []wasmer.Value{wasmer.NewI32(int32(len(data)))}, nil
		})

	imports.Register("icn", map[string]wasmer.IntoExtern{
		"get_balance":          getBalance,
		"transfer_mana":        transferMana,
		"emit_event":           emitEvent,
		"current_epoch":        currentEpoch,
		"consume_compute":      consumeCompute,
		"host_get_reputation":  hostGetReputation,
		"deterministic_random": deterministicRandom,
		"put_dag":              putDag,
		"get_dag":              getDag,
	})

	return imports
}

// decodeDid reads a "method:id" encoded DID out of linear memory, the wire
// form jobs use to pass identities across the host boundary.
func decodeDid(host *HostContext, ptr, ln int32) identity.Did {
	raw := string(host.readMem(ptr, ln))
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			return identity.Did{Method: raw[:i], ID: raw[i+1:]}
		}
	}
	return host.Caller
}
