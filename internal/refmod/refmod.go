// Package refmod builds a small native module that follows the same call
// contract as the real crypto module: bbmalloc/bbfree over linear memory,
// inputs by pointer, fixed outputs written in place, variable outputs
// returned through a pointer slot. It exists to exercise the wazero engine.
package refmod

import (
	"encoding/binary"

	"github.com/wippyai/crypto-bridge/internal/wasmgen"
)

// HeapBase is where bbmalloc starts handing out memory. The heap top
// returns here whenever the last live allocation is freed.
const HeapBase = 1024

// ReadyMessage is logged through env.logstr by _initialize
const ReadyMessage = "refmod initialised"

// Export names
const (
	Malloc          = "bbmalloc"
	Free            = "bbfree"
	Initialize      = "_initialize"
	Initialized     = "initialized"
	HeapLive        = "heap_live"
	HeapTop         = "heap_top"
	Concurrency     = "hardware_concurrency"
	CompressFields  = "pedersen_compress_fields"
	CopyVector      = "copy_vector"
	CopyThenTrap    = "copy_then_trap"
	CopyThenFail    = "copy_then_fail"
	TruncatedVector = "truncated_vector"
	NullVector      = "null_vector"
	Trap            = "trap"
)

const (
	globalTop = iota
	globalLive
	globalInit
)

const messageOffset = 16

const i32 = wasmgen.I32

func params(n int) []wasmgen.ValType {
	p := make([]wasmgen.ValType, n)
	for i := range p {
		p[i] = i32
	}
	return p
}

// Build assembles the module
func Build() []byte {
	m := wasmgen.New()

	logstr := m.ImportFunc("env", "logstr", wasmgen.Sig(params(1)))
	concurrency := m.ImportFunc("env", "env_hardware_concurrency", wasmgen.Sig(nil, i32))
	m.ImportFunc("wasi_snapshot_preview1", "random_get", wasmgen.Sig(params(2), i32))

	m.Memory("memory", 1, 0)
	m.Global("", true, HeapBase)
	m.Global("", true, 0)
	m.Global("", true, 0)
	m.Data(messageOffset, append([]byte(ReadyMessage), 0))

	// bbmalloc(size) -> ptr; locals: ptr, end
	malloc := m.Func(Malloc, wasmgen.Sig(params(1), i32), params(2), wasmgen.NewCode().
		GlobalGet(globalTop).LocalSet(1).
		LocalGet(1).
		LocalGet(0).I32Const(7).I32Add().I32Const(-8).I32And().
		I32Add().LocalSet(2).
		LocalGet(2).MemorySize().I32Const(16).I32Shl().I32GtU().
		If().
		LocalGet(2).MemorySize().I32Const(16).I32Shl().I32Sub().
		I32Const(0xffff).I32Add().I32Const(16).I32ShrU().
		MemoryGrow().I32Const(-1).I32Eq().
		If().I32Const(0).Return().End().
		End().
		LocalGet(2).GlobalSet(globalTop).
		GlobalGet(globalLive).I32Const(1).I32Add().GlobalSet(globalLive).
		LocalGet(1))

	// bbfree(ptr); the heap resets once nothing is live
	m.Func(Free, wasmgen.Sig(params(1)), nil, wasmgen.NewCode().
		LocalGet(0).I32Eqz().If().Return().End().
		GlobalGet(globalLive).I32Eqz().If().Return().End().
		GlobalGet(globalLive).I32Const(1).I32Sub().GlobalSet(globalLive).
		GlobalGet(globalLive).I32Eqz().
		If().I32Const(HeapBase).GlobalSet(globalTop).End())

	m.Func(Initialize, wasmgen.Sig(nil), nil, wasmgen.NewCode().
		I32Const(1).GlobalSet(globalInit).
		I32Const(messageOffset).Call(logstr))

	m.Func(Initialized, wasmgen.Sig(nil, i32), nil, wasmgen.NewCode().GlobalGet(globalInit))
	m.Func(HeapLive, wasmgen.Sig(nil, i32), nil, wasmgen.NewCode().GlobalGet(globalLive))
	m.Func(HeapTop, wasmgen.Sig(nil, i32), nil, wasmgen.NewCode().GlobalGet(globalTop))
	m.Func(Concurrency, wasmgen.Sig(nil, i32), nil, wasmgen.NewCode().Call(concurrency))

	// pedersen_compress_fields(lhs, rhs, out); local: i
	m.Func(CompressFields, wasmgen.Sig(params(3)), params(1), wasmgen.NewCode().
		Loop().
		LocalGet(2).LocalGet(3).I32Add().
		LocalGet(0).LocalGet(3).I32Add().I32Load(0).I32Const(3).I32Mul().
		LocalGet(1).LocalGet(3).I32Add().I32Load(0).
		I32Add().
		I32Store(0).
		LocalGet(3).I32Const(4).I32Add().LocalTee(3).
		I32Const(32).I32LtU().BrIf(0).
		End())

	// copy_vector(in *vector<Fr>, out **vector<Fr>); locals: n, len, p
	copyVector := m.Func(CopyVector, wasmgen.Sig(params(2)), params(3), wasmgen.NewCode().
		LocalGet(0).I32Load8U(0).I32Const(24).I32Shl().
		LocalGet(0).I32Load8U(1).I32Const(16).I32Shl().I32Or().
		LocalGet(0).I32Load8U(2).I32Const(8).I32Shl().I32Or().
		LocalGet(0).I32Load8U(3).I32Or().
		LocalSet(2).
		LocalGet(2).I32Const(5).I32Shl().I32Const(4).I32Add().LocalSet(3).
		LocalGet(3).Call(malloc).LocalTee(4).
		I32Eqz().If().Unreachable().End().
		LocalGet(4).LocalGet(0).LocalGet(3).MemoryCopy().
		LocalGet(1).LocalGet(4).I32Store(0))

	m.Func(CopyThenTrap, wasmgen.Sig(params(2)), nil, wasmgen.NewCode().
		LocalGet(0).LocalGet(1).Call(copyVector).
		Unreachable())

	m.Func(CopyThenFail, wasmgen.Sig(params(2), i32), nil, wasmgen.NewCode().
		LocalGet(0).LocalGet(1).Call(copyVector).
		I32Const(1))

	// truncated_vector(in, out): the result claims 1<<20 elements
	m.Func(TruncatedVector, wasmgen.Sig(params(2)), params(1), wasmgen.NewCode().
		I32Const(4).Call(malloc).LocalSet(2).
		LocalGet(2).I32Const(0x1000).I32Store(0).
		LocalGet(1).LocalGet(2).I32Store(0))

	// null_vector(in, out) leaves the slot untouched
	m.Func(NullVector, wasmgen.Sig(params(2)), nil, wasmgen.NewCode())

	m.Func(Trap, wasmgen.Sig(nil), nil, wasmgen.NewCode().Unreachable())

	return m.Encode()
}

// Compress computes what pedersen_compress_fields writes: each little-endian
// word of lhs times three plus the matching word of rhs.
func Compress(lhs, rhs [32]byte) [32]byte {
	var out [32]byte
	for i := 0; i < 32; i += 4 {
		v := binary.LittleEndian.Uint32(lhs[i:])*3 + binary.LittleEndian.Uint32(rhs[i:])
		binary.LittleEndian.PutUint32(out[i:], v)
	}
	return out
}
