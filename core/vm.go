package core

// vm.go wires the WASM host surface (hostfunctions.go) to an actual
// wasmer.Instance, grounded directly on the teacher's
// core/virtual_machine.go HeavyVM/registerHost: a wasmer.Store compiles a
// wasmer.Module, host callbacks are built with wasmer.NewFunction under the
// "env" import namespace, and the compiled instance's exported "memory" is
// the only linear memory contract code can touch. Unlike the teacher's
// four-function host_read/host_write/host_log/host_consume_gas surface,
// this binds the full spec.md §4.F surface (~30 functions) and adds the
// bounds-checking spec.md requires: every (ptr, len) pair is validated
// against the instance's memory size before any read/write, and an
// out-of-bounds access traps the instance instead of panicking the host
// process.
//
// Per spec.md §1, the WASM engine itself (JIT, sandboxing, instruction
// metering) is a black box; this file only supplies the import surface and
// memory-safety checks around it, not a replacement VM.

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"
)

// ContractVM compiles and executes contract WASM modules, bridging the
// ApplyContext host-function surface into wasmer imports.
type ContractVM struct {
	engine *wasmer.Engine
}

// NewContractVM returns a VM ready to execute code objects.
func NewContractVM() *ContractVM {
	return &ContractVM{engine: wasmer.NewEngine()}
}

// Execute compiles code.Code and invokes its `_start` export with ac bound
// as the host-function environment, exactly as the teacher's HeavyVM.Execute
// does for its own narrower import set. A contract whose VMType is not 0
// fails with WasmRuntimeError rather than silently running; VMVersion is
// not checked.
func (vm *ContractVM) Execute(ac *ApplyContext, code CodeObject) error {
	if code.VMType != 0 {
		return newChainError(ErrWasmRuntime, "unsupported vm_type %d", code.VMType)
	}
	store := wasmer.NewStore(vm.engine)
	mod, err := wasmer.NewModule(store, code.Code)
	if err != nil {
		return wrapChainError(ErrWasmRuntime, err, "compile contract module")
	}

	hc := &hostBinding{ac: ac}
	imports := registerHostImports(store, hc)

	instance, err := wasmer.NewInstance(mod, imports)
	if err != nil {
		return wrapChainError(ErrWasmRuntime, err, "instantiate contract module")
	}

	mem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return newChainError(ErrWasmRuntime, "wasm module missing exported memory")
	}
	hc.mem = mem

	start, err := instance.Exports.GetFunction("_start")
	if err != nil {
		return newChainError(ErrWasmRuntime, "wasm module missing _start export")
	}
	if _, err := start(); err != nil {
		return wrapChainError(ErrWasmRuntime, err, "contract trap")
	}
	return nil
}

// hostBinding closes over the ApplyContext and the instance memory for one
// invocation's host-function callbacks.
type hostBinding struct {
	ac  *ApplyContext
	mem *wasmer.Memory
}

// bounds validates (ptr, ln) against the instance memory size, returning an
// error rather than letting a contract read/write past the sandbox edge
// (spec.md §4.F: "all functions... validate (ptr, len)... before touching
// it; out-of-bounds traps the instance").
func (h *hostBinding) bounds(ptr, ln int32) ([]byte, error) {
	if ptr < 0 || ln < 0 {
		return nil, fmt.Errorf("negative memory offset/length")
	}
	data := h.mem.Data()
	end := int64(ptr) + int64(ln)
	if end > int64(len(data)) {
		return nil, fmt.Errorf("memory access [%d:%d] out of bounds (size %d)", ptr, end, len(data))
	}
	return data[ptr:end], nil
}

func (h *hostBinding) read(ptr, ln int32) ([]byte, error) {
	b, err := h.bounds(ptr, ln)
	if err != nil {
		return nil, err
	}
	out := make([]byte, ln)
	copy(out, b)
	return out, nil
}

func (h *hostBinding) write(ptr int32, data []byte) error {
	b, err := h.bounds(ptr, int32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// fn builds a host function the way the teacher's registerHost does:
// wasmer.NewValueTypes takes the raw ValueKind constants (I32, I64, ...)
// directly, cast through wasmer.ValueKind as virtual_machine.go does for
// its own host_consume_gas/host_read/host_write/host_log bindings.
func fn(store *wasmer.Store, params, results []wasmer.ValueKind, body func([]wasmer.Value) ([]wasmer.Value, error)) *wasmer.Function {
	return wasmer.NewFunction(store, wasmer.NewFunctionType(wasmer.NewValueTypes(params...), wasmer.NewValueTypes(results...)), body)
}

func trapResult(err error) ([]wasmer.Value, error) {
	return nil, err
}

// registerHostImports builds the "env" import namespace backing spec.md
// §4.F's host function surface, following the teacher's
// registerHost(store, hctx)/imports.Register("env", ...) shape. Each
// callback traps (returns a Go error, which wasmer converts to a WASM trap)
// on bounds violations or ChainError failures, unwinding the instance per
// spec.md §4.F's "host functions signal failure by returning a WASM trap".
func registerHostImports(store *wasmer.Store, h *hostBinding) *wasmer.ImportObject {
	imports := wasmer.NewImportObject()
	i32, i64 := wasmer.I32, wasmer.I64

	fns := map[string]*wasmer.Function{
		"action_data_size": fn(store, nil, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(len(h.ac.ActionData())))}, nil
		}),
		"read_action_data": fn(store, []wasmer.ValueKind{i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			data := h.ac.ActionData()
			if int(ln) > len(data) {
				ln = int32(len(data))
			}
			if err := h.write(ptr, data[:ln]); err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(ln)}, nil
		}),
		"current_receiver": fn(store, nil, []wasmer.ValueKind{i64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(int64(h.ac.CurrentReceiver()))}, nil
		}),
		"set_action_return_value": fn(store, []wasmer.ValueKind{i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			data, err := h.read(ptr, ln)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.SetActionReturnValue(data); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"require_auth": fn(store, []wasmer.ValueKind{i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.RequireAuth(Name(args[0].I64())); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"require_auth2": fn(store, []wasmer.ValueKind{i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.RequireAuth2(Name(args[0].I64()), Name(args[1].I64())); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"has_auth": fn(store, []wasmer.ValueKind{i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			ok := h.ac.HasAuth(Name(args[0].I64()))
			return []wasmer.Value{wasmer.NewI32(boolToI32(ok))}, nil
		}),
		"require_recipient": fn(store, []wasmer.ValueKind{i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			h.ac.RequireRecipient(Name(args[0].I64()))
			return nil, nil
		}),
		"is_account": fn(store, []wasmer.ValueKind{i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(boolToI32(h.ac.IsAccount(Name(args[0].I64()))))}, nil
		}),
		"is_privileged": fn(store, []wasmer.ValueKind{i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if !h.ac.IsPrivileged(h.ac.receiver) {
				return trapResult(newChainError(ErrActionValidation, "unprivileged account may not call is_privileged"))
			}
			return []wasmer.Value{wasmer.NewI32(boolToI32(h.ac.IsPrivileged(Name(args[0].I64()))))}, nil
		}),
		"sha1": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return hashInto(h, args, func(b []byte) []byte { s := Sha1Sum(b); return s[:] })
		}),
		"sha256": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return hashInto(h, args, func(b []byte) []byte { s := Sha256Sum(b); return s[:] })
		}),
		"sha512": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return hashInto(h, args, func(b []byte) []byte { s := Sha512Sum(b); return s[:] })
		}),
		"ripemd160": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return hashInto(h, args, func(b []byte) []byte { s := Ripemd160Sum(b); return s[:] })
		}),
		"assert_sha256": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			dataPtr, dataLen, hashPtr := args[0].I32(), args[1].I32(), args[2].I32()
			data, err := h.read(dataPtr, dataLen)
			if err != nil {
				return trapResult(err)
			}
			expectedBytes, err := h.read(hashPtr, 32)
			if err != nil {
				return trapResult(err)
			}
			var expected [32]byte
			copy(expected[:], expectedBytes)
			if err := h.ac.AssertSha256(data, expected); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"send_inline": fn(store, []wasmer.ValueKind{i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			buf, err := h.read(ptr, ln)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.SendInline(buf); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"pulse_assert": fn(store, []wasmer.ValueKind{i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			cond, msgPtr, msgLen := args[0].I32(), args[1].I32(), args[2].I32()
			msg, err := h.read(msgPtr, msgLen)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.Assert(cond != 0, string(msg)); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"current_time": fn(store, nil, []wasmer.ValueKind{i64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(h.ac.CurrentTime())}, nil
		}),
		"db_store_i64": fn(store, []wasmer.ValueKind{i64, i64, i64, i64, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			scope, table, payer := Name(args[0].I64()), Name(args[1].I64()), Name(args[2].I64())
			primaryKey := uint64(args[3].I64())
			valPtr, valLen := args[4].I32(), args[5].I32()
			val, err := h.read(valPtr, valLen)
			if err != nil {
				return trapResult(err)
			}
			handle, err := h.ac.DBStore(scope, table, primaryKey, payer, val)
			if err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(handle))}, nil
		}),
		"db_get_i64": fn(store, []wasmer.ValueKind{i32, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			handle, dstPtr, dstLen := iteratorHandle(args[0].I32()), args[1].I32(), args[2].I32()
			val, err := h.ac.DBGet(handle)
			if err != nil {
				return trapResult(err)
			}
			if int32(len(val)) > dstLen {
				val = val[:dstLen]
			}
			if err := h.write(dstPtr, val); err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(len(val)))}, nil
		}),
		"db_remove_i64": fn(store, []wasmer.ValueKind{i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.DBRemove(iteratorHandle(args[0].I32())); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"db_find_i64": fn(store, []wasmer.ValueKind{i64, i64, i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			scope, table := Name(args[0].I64()), Name(args[1].I64())
			key := uint64(args[2].I64())
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBFind(scope, table, key)))}, nil
		}),
		"db_end_i64": fn(store, []wasmer.ValueKind{i64, i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			scope, table := Name(args[0].I64()), Name(args[1].I64())
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBEnd(scope, table)))}, nil
		}),
		"db_next_i64": fn(store, []wasmer.ValueKind{i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBNext(iteratorHandle(args[0].I32()))))}, nil
		}),
		"db_previous_i64": fn(store, []wasmer.ValueKind{i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBPrevious(iteratorHandle(args[0].I32()))))}, nil
		}),
		"db_update_i64": fn(store, []wasmer.ValueKind{i32, i64, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			handle, payer := iteratorHandle(args[0].I32()), Name(args[1].I64())
			valPtr, valLen := args[2].I32(), args[3].I32()
			val, err := h.read(valPtr, valLen)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.DBUpdate(handle, payer, val); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"db_lowerbound_i64": fn(store, []wasmer.ValueKind{i64, i64, i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			scope, table := Name(args[0].I64()), Name(args[1].I64())
			key := uint64(args[2].I64())
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBLowerBound(scope, table, key)))}, nil
		}),
		"db_upperbound_i64": fn(store, []wasmer.ValueKind{i64, i64, i64}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			scope, table := Name(args[0].I64()), Name(args[1].I64())
			key := uint64(args[2].I64())
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBUpperBound(scope, table, key)))}, nil
		}),
		"db_find_i64_secondary": fn(store, []wasmer.ValueKind{i64, i64, i32, i32, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			handle, err := secondaryLookup(h, args, h.ac.DBFindSecondary)
			if err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(handle))}, nil
		}),
		"db_lowerbound_i64_secondary": fn(store, []wasmer.ValueKind{i64, i64, i32, i32, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			handle, err := secondaryLookup(h, args, h.ac.DBLowerBoundSecondary)
			if err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(handle))}, nil
		}),
		"db_upperbound_i64_secondary": fn(store, []wasmer.ValueKind{i64, i64, i32, i32, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			handle, err := secondaryLookup(h, args, h.ac.DBUpperBoundSecondary)
			if err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(handle))}, nil
		}),
		"db_next_i64_secondary": fn(store, []wasmer.ValueKind{i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBNextSecondary(iteratorHandle(args[0].I32()))))}, nil
		}),
		"db_previous_i64_secondary": fn(store, []wasmer.ValueKind{i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI32(int32(h.ac.DBPreviousSecondary(iteratorHandle(args[0].I32()))))}, nil
		}),
		"recover_key": fn(store, []wasmer.ValueKind{i32, i32, i32, i32, i32, i32}, []wasmer.ValueKind{i32}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			digestPtr, digestLen := args[0].I32(), args[1].I32()
			sigPtr, sigLen := args[2].I32(), args[3].I32()
			dstPtr, dstLen := args[4].I32(), args[5].I32()
			digestBytes, err := h.read(digestPtr, digestLen)
			if err != nil {
				return trapResult(err)
			}
			sigBytes, err := h.read(sigPtr, sigLen)
			if err != nil {
				return trapResult(err)
			}
			var digest Id
			copy(digest[:], digestBytes)
			sig, err := NewReader(sigBytes).ReadSignature()
			if err != nil {
				return trapResult(err)
			}
			key, err := h.ac.RecoverKeyHost(digest, sig)
			if err != nil {
				return trapResult(err)
			}
			keyW := NewWriter()
			keyW.WritePublicKey(key)
			packed := keyW.Bytes()
			if int32(len(packed)) > dstLen {
				packed = packed[:dstLen]
			}
			if err := h.write(dstPtr, packed); err != nil {
				return trapResult(err)
			}
			return []wasmer.Value{wasmer.NewI32(int32(len(packed)))}, nil
		}),
		"set_privileged": fn(store, []wasmer.ValueKind{i64, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.SetPrivileged(Name(args[0].I64()), args[1].I32() != 0); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"set_resource_limits": fn(store, []wasmer.ValueKind{i64, i64, i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			account := Name(args[0].I64())
			ramBytes, cpuWeight, netWeight := args[1].I64(), args[2].I64(), args[3].I64()
			if err := h.ac.SetResourceLimits(account, ramBytes, cpuWeight, netWeight); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"set_cpu_limit_parameters": fn(store, []wasmer.ValueKind{i64, i64, i64, i64, i64, i64, i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.SetCPULimitParameters(elasticParamsFromArgs(args)); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"set_net_limit_parameters": fn(store, []wasmer.ValueKind{i64, i64, i64, i64, i64, i64, i64, i64}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			if err := h.ac.SetNetLimitParameters(elasticParamsFromArgs(args)); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"send_context_free_inline": fn(store, []wasmer.ValueKind{i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			ptr, ln := args[0].I32(), args[1].I32()
			buf, err := h.read(ptr, ln)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.SendContextFreeInline(buf); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"send_deferred": fn(store, []wasmer.ValueKind{i64, i32, i32, i32}, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			senderID := uint64(args[0].I64())
			ptr, ln := args[1].I32(), args[2].I32()
			delaySec := uint32(args[3].I32())
			buf, err := h.read(ptr, ln)
			if err != nil {
				return trapResult(err)
			}
			if err := h.ac.SendDeferred(senderID, buf, delaySec); err != nil {
				return trapResult(err)
			}
			return nil, nil
		}),
		"publication_time": fn(store, nil, []wasmer.ValueKind{i64}, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return []wasmer.Value{wasmer.NewI64(h.ac.PublicationTime())}, nil
		}),
		"abort": fn(store, nil, nil, func(args []wasmer.Value) ([]wasmer.Value, error) {
			return trapResult(h.ac.Abort())
		}),
	}

	wasmerExterns := make(map[string]wasmer.IntoExtern, len(fns))
	for name, f := range fns {
		wasmerExterns[name] = f
	}
	imports.Register("env", wasmerExterns)
	return imports
}

func hashInto(h *hostBinding, args []wasmer.Value, hashFn func([]byte) []byte) ([]wasmer.Value, error) {
	dataPtr, dataLen, dstPtr := args[0].I32(), args[1].I32(), args[2].I32()
	data, err := h.read(dataPtr, dataLen)
	if err != nil {
		return trapResult(err)
	}
	if err := h.write(dstPtr, hashFn(data)); err != nil {
		return trapResult(err)
	}
	return nil, nil
}

func boolToI32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// secondaryLookup marshals the (scope, table, index_name, secondary_key)
// argument layout shared by the db_*_i64_secondary host imports and
// dispatches to one of DBFindSecondary/DBLowerBoundSecondary/
// DBUpperBoundSecondary.
func secondaryLookup(h *hostBinding, args []wasmer.Value, lookup func(scope, table Name, indexName string, secondaryKey []byte) iteratorHandle) (iteratorHandle, error) {
	scope, table := Name(args[0].I64()), Name(args[1].I64())
	namePtr, nameLen := args[2].I32(), args[3].I32()
	keyPtr, keyLen := args[4].I32(), args[5].I32()
	nameBytes, err := h.read(namePtr, nameLen)
	if err != nil {
		return 0, err
	}
	key, err := h.read(keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	return lookup(scope, table, string(nameBytes), key), nil
}

// elasticParamsFromArgs unpacks the 8 i64 arguments shared by
// set_cpu_limit_parameters/set_net_limit_parameters into an
// ElasticLimitParameters: target, max, periods, max_multiplier,
// contract_rate numerator/denominator, expand_rate numerator/denominator.
func elasticParamsFromArgs(args []wasmer.Value) ElasticLimitParameters {
	return ElasticLimitParameters{
		Target:        uint64(args[0].I64()),
		Max:           uint64(args[1].I64()),
		Periods:       uint64(args[2].I64()),
		MaxMultiplier: uint64(args[3].I64()),
		ContractRate:  Ratio{Numerator: uint64(args[4].I64()), Denominator: uint64(args[5].I64())},
		ExpandRate:    Ratio{Numerator: uint64(args[6].I64()), Denominator: uint64(args[7].I64())},
	}
}
