package engine

import (
	"context"
	stderrors "errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/internal/refmod"
	"github.com/wippyai/crypto-bridge/internal/wasmgen"
)

func newEngine(t *testing.T, cfg *Config) *Engine {
	t.Helper()
	e, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = e.Close(context.Background()) })
	return e
}

func instantiate(t *testing.T, e *Engine, wasm []byte) *Instance {
	t.Helper()
	ctx := context.Background()
	cm, err := e.Compile(ctx, wasm)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	inst, err := cm.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate failed: %v", err)
	}
	t.Cleanup(func() { _ = inst.Close(ctx) })
	return inst
}

func call32(t *testing.T, inst *Instance, name string, params ...uint64) uint32 {
	t.Helper()
	res, err := inst.Call(context.Background(), name, params...)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	if len(res) != 1 {
		t.Fatalf("%s returned %d values", name, len(res))
	}
	return uint32(res[0])
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		cfg  *Config
		name string
	}{
		{nil, "nil config"},
		{&Config{}, "default config"},
		{&Config{MemoryLimitPages: 256}, "16MB limit"},
		{&Config{MemoryLimitPages: 1024, HardwareConcurrency: 4}, "64MB limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e, err := New(ctx, tc.cfg)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer e.Close(ctx)

			if e.runtime == nil {
				t.Error("engine runtime should not be nil")
			}
			if !e.provides("env", "logstr") || !e.provides("wasi_snapshot_preview1", "fd_write") {
				t.Error("host modules not instantiated")
			}
		})
	}
}

func TestEngine_CloseTwice(t *testing.T) {
	ctx := context.Background()
	e, err := New(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(ctx); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := e.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := e.Compile(ctx, refmod.Build()); !errors.IsKind(err, errors.KindClosed) {
		t.Errorf("Compile after Close: err = %v", err)
	}
}

func TestCompile_ExportsAndImports(t *testing.T) {
	e := newEngine(t, nil)
	cm, err := e.Compile(context.Background(), refmod.Build())
	if err != nil {
		t.Fatal(err)
	}

	exports := cm.Exports()
	for _, name := range []string{refmod.Malloc, refmod.Free, refmod.CompressFields, refmod.Initialize} {
		found := false
		for _, e := range exports {
			if e == name {
				found = true
			}
		}
		if !found {
			t.Errorf("export %s missing from %v", name, exports)
		}
	}

	want := []string{"env#logstr", "env#env_hardware_concurrency", "wasi_snapshot_preview1#random_get"}
	got := cm.Imports()
	if len(got) != len(want) {
		t.Fatalf("Imports() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Imports()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestCompile_Invalid(t *testing.T) {
	e := newEngine(t, nil)
	tests := []struct {
		name string
		wasm []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not a wasm module")},
		{"truncated", refmod.Build()[:20]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(context.Background(), tt.wasm)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !stderrors.As(err, &e) || e.Phase != errors.PhaseLoad {
				t.Errorf("err = %v, want load phase error", err)
			}
		})
	}
}

func TestCompile_MissingImports(t *testing.T) {
	m := wasmgen.New()
	m.ImportFunc("env", "logstr", wasmgen.Sig([]wasmgen.ValType{wasmgen.I32}))
	m.ImportFunc("env", "get_data", wasmgen.Sig([]wasmgen.ValType{wasmgen.I32}, wasmgen.I32))
	m.ImportFunc("threads", "spawn", wasmgen.Sig(nil))
	m.Memory("memory", 1, 0)

	e := newEngine(t, nil)
	_, err := e.Compile(context.Background(), m.Encode())

	var missing *errors.MissingImportsError
	if !stderrors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingImportsError", err)
	}
	if len(missing.Imports) != 2 {
		t.Fatalf("missing = %v, want 2 entries", missing.Imports)
	}
	if missing.Imports[0] != (errors.MissingImport{Module: "env", Name: "get_data"}) {
		t.Errorf("first missing = %v", missing.Imports[0])
	}
	if missing.Imports[1] != (errors.MissingImport{Module: "threads", Name: "spawn"}) {
		t.Errorf("second missing = %v", missing.Imports[1])
	}
}

func TestInstantiate_RunsInitialize(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := newEngine(t, &Config{Logger: zap.New(core)})
	inst := instantiate(t, e, refmod.Build())

	if got := call32(t, inst, refmod.Initialized); got != 1 {
		t.Errorf("initialized = %d, want 1", got)
	}

	lines := logs.FilterMessage("module log").All()
	if len(lines) != 1 {
		t.Fatalf("module log lines = %d, want 1", len(lines))
	}
	if got := lines[0].ContextMap()["line"]; got != refmod.ReadyMessage {
		t.Errorf("logged %q, want %q", got, refmod.ReadyMessage)
	}
}

func TestInstantiate_NoAllocator(t *testing.T) {
	m := wasmgen.New()
	m.Memory("memory", 1, 0)
	m.Func("noop", wasmgen.Sig(nil), nil, wasmgen.NewCode())

	e := newEngine(t, nil)
	cm, err := e.Compile(context.Background(), m.Encode())
	if err != nil {
		t.Fatal(err)
	}
	_, err = cm.Instantiate(context.Background())
	if !errors.IsKind(err, errors.KindInstantiation) || !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("err = %v, want instantiation failure", err)
	}
}

func TestInstantiate_ExplicitAllocatorNames(t *testing.T) {
	e := newEngine(t, &Config{AllocExport: refmod.Malloc, FreeExport: "release"})
	cm, err := e.Compile(context.Background(), refmod.Build())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cm.Instantiate(context.Background()); !errors.IsKind(err, errors.KindInstantiation) {
		t.Errorf("err = %v, want instantiation failure", err)
	}
}

func TestInstance_HardwareConcurrency(t *testing.T) {
	tests := []struct {
		cfg  *Config
		want uint32
	}{
		{nil, 1},
		{&Config{HardwareConcurrency: 8}, 8},
	}
	for _, tt := range tests {
		inst := instantiate(t, newEngine(t, tt.cfg), refmod.Build())
		if got := call32(t, inst, refmod.Concurrency); got != tt.want {
			t.Errorf("hardware_concurrency = %d, want %d", got, tt.want)
		}
	}
}

func TestInstance_AllocFree(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())
	alloc := inst.Allocator()

	p1, err := alloc.Alloc(10)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := alloc.Alloc(100)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != refmod.HeapBase || p2 != refmod.HeapBase+16 {
		t.Errorf("pointers = %d, %d", p1, p2)
	}
	if got := call32(t, inst, refmod.HeapLive); got != 2 {
		t.Errorf("heap_live = %d, want 2", got)
	}

	for _, p := range []uint32{p2, p1} {
		if err := alloc.Free(p); err != nil {
			t.Fatal(err)
		}
	}
	if got := call32(t, inst, refmod.HeapLive); got != 0 {
		t.Errorf("heap_live = %d, want 0", got)
	}
	if got := call32(t, inst, refmod.HeapTop); got != refmod.HeapBase {
		t.Errorf("heap_top = %d, want %d", got, refmod.HeapBase)
	}
	if err := alloc.Free(0); err != nil {
		t.Errorf("Free(0) = %v", err)
	}
}

func TestInstance_AllocatorWithContext(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())

	ca, ok := inst.Allocator().(cryptobridge.ContextAllocator)
	if !ok {
		t.Fatal("allocator does not accept a context")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bound := ca.WithContext(ctx)

	p, err := bound.Alloc(24)
	if err != nil {
		t.Fatal(err)
	}
	if p != refmod.HeapBase {
		t.Errorf("pointer = %d, want %d", p, refmod.HeapBase)
	}
	if got := call32(t, inst, refmod.HeapLive); got != 1 {
		t.Errorf("heap_live = %d, want 1", got)
	}
	if err := bound.Free(p); err != nil {
		t.Fatal(err)
	}
	if got := call32(t, inst, refmod.HeapLive); got != 0 {
		t.Errorf("heap_live = %d, want 0", got)
	}

	if err := inst.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := bound.Alloc(8); !errors.IsKind(err, errors.KindClosed) {
		t.Errorf("Alloc after Close = %v, want closed", err)
	}
}

func TestInstance_AllocGrowsMemory(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())
	before := inst.Memory().Size()

	p, err := inst.Allocator().Alloc(3 * 65536)
	if err != nil {
		t.Fatal(err)
	}
	if after := inst.Memory().Size(); after <= before {
		t.Errorf("memory did not grow: %d -> %d", before, after)
	}
	if err := inst.Memory().Write(p+3*65536-1, []byte{1}); err != nil {
		t.Errorf("write at end of allocation: %v", err)
	}
}

func TestInstance_MemoryLimit(t *testing.T) {
	inst := instantiate(t, newEngine(t, &Config{MemoryLimitPages: 1}), refmod.Build())

	_, err := inst.Allocator().Alloc(2 * 65536)
	if !errors.IsKind(err, errors.KindAllocation) {
		t.Errorf("err = %v, want allocation failure", err)
	}
}

func TestInstance_Memory(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())
	mem := inst.Memory()

	if err := mem.WriteU32(2048, 0xdeadbeef); err != nil {
		t.Fatal(err)
	}
	v, err := mem.ReadU32(2048)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = %x, %v", v, err)
	}
	b, err := mem.Read(2048, 4)
	if err != nil || b[0] != 0xef || b[3] != 0xde {
		t.Errorf("Read = %x, %v", b, err)
	}

	size := mem.Size()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"read", func() error { _, err := mem.Read(size-2, 4); return err }},
		{"write", func() error { return mem.Write(size, []byte{1}) }},
		{"read u32", func() error { _, err := mem.ReadU32(size - 3); return err }},
		{"write u32", func() error { return mem.WriteU32(size, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.IsKind(err, errors.KindOutOfBounds) {
				t.Errorf("err = %v, want out_of_bounds", err)
			}
		})
	}
}

func TestInstance_TrapLeavesInstanceUsable(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())
	ctx := context.Background()

	if !inst.HasExport(refmod.Trap) || inst.HasExport("nope") {
		t.Fatal("HasExport wrong")
	}
	if _, err := inst.Call(ctx, refmod.Trap); err == nil {
		t.Fatal("trap returned no error")
	}
	if got := call32(t, inst, refmod.HeapLive); got != 0 {
		t.Errorf("heap_live = %d after trap", got)
	}

	if _, err := inst.Call(ctx, "nope"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("missing export err = %v", err)
	}
	if _, err := inst.Call(ctx, refmod.Malloc); !errors.IsKind(err, errors.KindTypeMismatch) {
		t.Errorf("wrong param count err = %v", err)
	}
}

func TestInstance_Isolation(t *testing.T) {
	e := newEngine(t, nil)
	a := instantiate(t, e, refmod.Build())
	b := instantiate(t, e, refmod.Build())

	if _, err := a.Allocator().Alloc(64); err != nil {
		t.Fatal(err)
	}
	if err := a.Memory().Write(refmod.HeapBase, []byte("only in a")); err != nil {
		t.Fatal(err)
	}

	if got := call32(t, b, refmod.HeapLive); got != 0 {
		t.Errorf("instance b heap_live = %d", got)
	}
	got, _ := b.Memory().Read(refmod.HeapBase, 9)
	if string(got) == "only in a" {
		t.Error("instances share memory")
	}
}

func TestInstance_Close(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil)
	cm, err := e.Compile(ctx, refmod.Build())
	if err != nil {
		t.Fatal(err)
	}
	inst, err := cm.Instantiate(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := inst.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := inst.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := inst.Call(ctx, refmod.HeapLive); !errors.IsKind(err, errors.KindClosed) {
		t.Errorf("Call after Close: err = %v", err)
	}
	if _, err := inst.Allocator().Alloc(8); !errors.IsKind(err, errors.KindClosed) {
		t.Errorf("Alloc after Close: err = %v", err)
	}
	if inst.Memory().Size() != 0 {
		t.Error("memory still reachable after Close")
	}
}

func TestReadCString(t *testing.T) {
	inst := instantiate(t, newEngine(t, nil), refmod.Build())
	mem := inst.mod.Memory()

	mem.Write(4096, []byte("hello\x00world"))
	if got := readCString(mem, 4096); got != "hello" {
		t.Errorf("readCString = %q", got)
	}
	if got := readCString(mem, mem.Size()+10); got != "" {
		t.Errorf("out of range readCString = %q", got)
	}
	if got := readCString(nil, 0); got != "" {
		t.Errorf("nil memory readCString = %q", got)
	}
}
