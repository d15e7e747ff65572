package dispatch

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/internal/simmod"
	"github.com/wippyai/crypto-bridge/types"
)

var (
	frPair = []types.Descriptor{types.FrType, types.FrType}
	oneFr  = []types.Descriptor{types.FrType}
	frVec  = []types.Descriptor{types.SequenceOf(types.FrType)}
)

func addr(v uint64) uint32 { return uint32(v) }

func TestCall_Deterministic(t *testing.T) {
	ctx := context.Background()
	mod := simmod.New(nil)
	d := New(mod)

	a, b := types.FrFromUint64(1), types.FrFromUint64(2)
	first, err := d.Call(ctx, simmod.PedersenCompressFields, frPair, []any{a, b}, oneFr)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Call(ctx, simmod.PedersenCompressFields, frPair, []any{a, b}, oneFr)
	if err != nil {
		t.Fatal(err)
	}
	if first[0].(types.Fr) != second[0].(types.Fr) {
		t.Errorf("same inputs gave %v and %v", first[0], second[0])
	}

	swapped, err := d.Call(ctx, simmod.PedersenCompressFields, frPair, []any{b, a}, oneFr)
	if err != nil {
		t.Fatal(err)
	}
	if swapped[0].(types.Fr) == first[0].(types.Fr) {
		t.Error("argument order ignored")
	}
	if mod.Heap().Live() != 0 {
		t.Errorf("Live = %d after successful calls", mod.Heap().Live())
	}
}

func TestCall_VariableOutput(t *testing.T) {
	ctx := context.Background()
	mod := simmod.New(nil)
	d := New(mod)

	leaves := []types.Fr{types.FrFromUint64(1), types.FrFromUint64(2)}
	out, err := d.Call(ctx, simmod.PedersenHashToTree, frVec, []any{leaves}, frVec)
	if err != nil {
		t.Fatal(err)
	}
	nodes := out[0].([]types.Fr)
	if len(nodes) != 3 || nodes[0] != leaves[0] || nodes[1] != leaves[1] {
		t.Errorf("nodes = %v", nodes)
	}
	if mod.Heap().Live() != 0 {
		t.Errorf("module-owned result not freed: Live = %d", mod.Heap().Live())
	}
}

func TestCall_MissingExport(t *testing.T) {
	mod := simmod.New(nil)
	d := New(mod)
	top := mod.Heap().HighWater()

	_, err := d.Call(context.Background(), "pedersen_does_not_exist", frPair, []any{types.Fr{}, types.Fr{}}, oneFr)
	if !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Fatalf("err = %v, want dispatch_failure", err)
	}
	if mod.Heap().HighWater() != top {
		t.Error("memory allocated for a missing export")
	}
}

func TestCall_CallerFaultTouchesNothing(t *testing.T) {
	mod := simmod.New(nil)
	d := New(mod)
	top := mod.Heap().HighWater()

	tests := []struct {
		name string
		args []any
		kind errors.Kind
	}{
		{"fq for fr", []any{types.Fq{}, types.Fr{}}, errors.KindTypeMismatch},
		{"arity", []any{types.Fr{}}, errors.KindTypeMismatch},
		{"short bytes", []any{make([]byte, 31), types.Fr{}}, errors.KindInvalidLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Call(context.Background(), simmod.PedersenCompressFields, frPair, tt.args, oneFr)
			if !errors.IsKind(err, tt.kind) {
				t.Fatalf("err = %v, want %s", err, tt.kind)
			}
			var e *errors.Error
			if ee, ok := err.(*errors.Error); ok {
				e = ee
			}
			if e == nil || e.Export != simmod.PedersenCompressFields {
				t.Errorf("export not recorded on %v", err)
			}
		})
	}
	if mod.Calls(simmod.PedersenCompressFields) != 0 {
		t.Error("module invoked despite invalid arguments")
	}
	if mod.Heap().HighWater() != top {
		t.Error("memory allocated for invalid arguments")
	}
}

// registerFailures adds exports that fail after allocating module memory.
// Each takes (in *vector<Fr>, out **vector<Fr>).
func registerFailures(mod *simmod.Module) []string {
	mod.Register("fail_status", func(_ context.Context, m *simmod.Module, p []uint64) ([]uint64, error) {
		if err := m.ReturnVector(addr(p[1]), [][]byte{make([]byte, 32)}); err != nil {
			return nil, err
		}
		return []uint64{1}, nil
	})
	mod.Register("fail_trap", func(_ context.Context, m *simmod.Module, p []uint64) ([]uint64, error) {
		if err := m.ReturnVector(addr(p[1]), [][]byte{make([]byte, 32)}); err != nil {
			return nil, err
		}
		panic("unreachable executed")
	})
	mod.Register("fail_null", func(context.Context, *simmod.Module, []uint64) ([]uint64, error) {
		return []uint64{0}, nil
	})
	mod.Register("fail_truncated", func(_ context.Context, m *simmod.Module, p []uint64) ([]uint64, error) {
		ptr, err := m.Heap().Alloc(4)
		if err != nil {
			return nil, err
		}
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], 1<<20)
		if err := m.WriteFixed(ptr, hdr[:]); err != nil {
			return nil, err
		}
		return nil, m.Memory().WriteU32(addr(p[1]), ptr)
	})
	return []string{"fail_status", "fail_trap", "fail_null", "fail_truncated"}
}

func TestCall_FailuresReleaseMemory(t *testing.T) {
	ctx := context.Background()
	mod := simmod.New(nil)
	d := New(mod)
	names := registerFailures(mod)
	args := []any{[]types.Fr{types.FrFromUint64(5), types.FrFromUint64(6)}}

	want := map[string]errors.Kind{
		"fail_status":    errors.KindDispatchFailure,
		"fail_trap":      errors.KindDispatchFailure,
		"fail_null":      errors.KindDispatchFailure,
		"fail_truncated": errors.KindTruncatedResult,
	}

	// Warm up so the heap reaches its working size.
	for _, name := range names {
		_, _ = d.Call(ctx, name, frVec, args, frVec)
	}
	top := mod.Heap().HighWater()

	const n = 200
	for i := 0; i < n; i++ {
		for _, name := range names {
			out, err := d.Call(ctx, name, frVec, args, frVec)
			if !errors.IsKind(err, want[name]) {
				t.Fatalf("%s: err = %v, want %s", name, err, want[name])
			}
			if out != nil {
				t.Fatalf("%s: partial result %v", name, out)
			}
		}
	}

	if live := mod.Heap().Live(); live != 0 {
		t.Errorf("Live = %d after %d failing calls", live, n*len(names))
	}
	if hw := mod.Heap().HighWater(); hw != top {
		t.Errorf("high water grew from %d to %d", top, hw)
	}
}

func TestCall_AllocationFailure(t *testing.T) {
	mod := simmod.New(nil)
	d := New(mod)

	mod.Heap().FailAfter(1)
	_, err := d.Call(context.Background(), simmod.PedersenCompressFields, frPair, []any{types.Fr{}, types.Fr{}}, oneFr)
	mod.Heap().FailAfter(-1)

	if !errors.IsKind(err, errors.KindDispatchFailure) || !errors.IsKind(err, errors.KindAllocation) {
		t.Fatalf("err = %v, want dispatch_failure caused by allocation", err)
	}
	if mod.Heap().Live() != 0 {
		t.Errorf("Live = %d, first argument not released", mod.Heap().Live())
	}
	if mod.Calls(simmod.PedersenCompressFields) != 0 {
		t.Error("module invoked after allocation failure")
	}
}

func TestCall_ReturnPointer(t *testing.T) {
	ctx := context.Background()
	mod := simmod.New(&simmod.Config{Bare: true})
	d := New(mod, WithConvention(ReturnPointer))
	if d.Convention() != ReturnPointer {
		t.Fatal("convention not applied")
	}

	// (data *buffer) -> *(Buffer32, Buffer32, bool)
	mod.Register("sign", func(_ context.Context, m *simmod.Module, p []uint64) ([]uint64, error) {
		data, err := m.ReadBuffer(addr(p[0]))
		if err != nil {
			return nil, err
		}
		region := make([]byte, 65)
		copy(region, data)
		copy(region[32:], data)
		region[64] = 1
		ptr, err := m.Heap().Alloc(65)
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(ptr)}, m.WriteFixed(ptr, region)
	})
	mod.Register("is_even", func(_ context.Context, _ *simmod.Module, p []uint64) ([]uint64, error) {
		return []uint64{uint64(1 - p[0]%2)}, nil
	})
	mod.Register("null", func(context.Context, *simmod.Module, []uint64) ([]uint64, error) {
		return []uint64{0}, nil
	})

	out, err := d.Call(ctx, "sign", []types.Descriptor{types.BufferType}, []any{types.Buffer("ab")},
		[]types.Descriptor{types.Buffer32Type, types.Buffer32Type, types.BoolType})
	if err != nil {
		t.Fatal(err)
	}
	s := out[0].(types.Buffer32)
	if s[0] != 'a' || s[1] != 'b' || out[2].(bool) != true {
		t.Errorf("out = %v", out)
	}

	out, err = d.Call(ctx, "is_even", []types.Descriptor{types.NumberType}, []any{uint32(4)}, []types.Descriptor{types.BoolType})
	if err != nil || out[0].(bool) != true {
		t.Errorf("is_even(4) = %v, %v", out, err)
	}

	_, err = d.Call(ctx, "null", nil, nil, oneFr)
	if !errors.IsKind(err, errors.KindDispatchFailure) {
		t.Errorf("null pointer err = %v", err)
	}

	if mod.Heap().Live() != 0 {
		t.Errorf("Live = %d", mod.Heap().Live())
	}
}

func TestCall_OversizedCountIsModuleFault(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "bridge")
	if err != nil {
		t.Fatal(err)
	}
	mod := simmod.New(&simmod.Config{Bare: true})
	d := New(mod, WithConvention(ReturnPointer), WithMetrics(m))

	mod.Register("huge_count", func(_ context.Context, m *simmod.Module, _ []uint64) ([]uint64, error) {
		region := []byte{0x00, 0x10, 0x00, 0x01, 1, 2, 3, 4}
		ptr, err := m.Heap().Alloc(uint32(len(region)))
		if err != nil {
			return nil, err
		}
		return []uint64{uint64(ptr)}, m.WriteFixed(ptr, region)
	})

	out, err := d.Call(ctx, "huge_count", nil, nil, frVec)
	if out != nil {
		t.Errorf("partial result %v", out)
	}
	if !errors.IsKind(err, errors.KindTruncatedResult) {
		t.Fatalf("err = %v, want truncated_result", err)
	}
	if errors.IsCallerFault(err) {
		t.Errorf("module fault reported as caller fault: %v", err)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("huge_count", OutcomeDecode)); got != 1 {
		t.Errorf("decode outcome calls = %v", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("huge_count", OutcomeCaller)); got != 0 {
		t.Errorf("caller outcome calls = %v", got)
	}
	if mod.Heap().Live() != 0 {
		t.Errorf("Live = %d", mod.Heap().Live())
	}
}

type callKey struct{}

// ctxAllocator records the context each allocation and free ran under
type ctxAllocator struct {
	cryptobridge.Allocator
	allocs []context.Context
	frees  []context.Context
}

func (a *ctxAllocator) WithContext(ctx context.Context) cryptobridge.Allocator {
	return boundCtxAllocator{a: a, ctx: ctx}
}

type boundCtxAllocator struct {
	a   *ctxAllocator
	ctx context.Context
}

func (b boundCtxAllocator) Alloc(size uint32) (uint32, error) {
	b.a.allocs = append(b.a.allocs, b.ctx)
	return b.a.Allocator.Alloc(size)
}

func (b boundCtxAllocator) Free(ptr uint32) error {
	b.a.frees = append(b.a.frees, b.ctx)
	return b.a.Allocator.Free(ptr)
}

type ctxModule struct {
	*simmod.Module
	alloc *ctxAllocator
}

func (m ctxModule) Allocator() cryptobridge.Allocator { return m.alloc }

func TestCall_AllocatesUnderCallContext(t *testing.T) {
	sim := simmod.New(nil)
	alloc := &ctxAllocator{Allocator: sim.Allocator()}
	d := New(ctxModule{Module: sim, alloc: alloc})

	leaves := []types.Fr{types.FrFromUint64(1), types.FrFromUint64(2)}
	for _, id := range []string{"first", "second"} {
		alloc.allocs, alloc.frees = nil, nil
		ctx, cancel := context.WithCancel(context.WithValue(context.Background(), callKey{}, id))
		cancel()

		if _, err := d.Call(ctx, simmod.PedersenHashToTree, frVec, []any{leaves}, frVec); err != nil {
			t.Fatal(err)
		}
		if len(alloc.allocs) == 0 || len(alloc.frees) == 0 {
			t.Fatalf("%s: allocs=%d frees=%d", id, len(alloc.allocs), len(alloc.frees))
		}
		for _, c := range alloc.allocs {
			if c.Value(callKey{}) != id {
				t.Errorf("%s: allocation ran under %v", id, c.Value(callKey{}))
			}
		}
		for _, c := range alloc.frees {
			if c.Value(callKey{}) != id {
				t.Errorf("%s: free ran under %v", id, c.Value(callKey{}))
			}
			if c.Err() != nil {
				t.Errorf("%s: free ran under a cancelled context", id)
			}
		}
	}
	if sim.Heap().Live() != 0 {
		t.Errorf("Live = %d", sim.Heap().Live())
	}
}

func TestCall_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "bridge")
	if err != nil {
		t.Fatal(err)
	}
	mod := simmod.New(nil)
	d := New(mod, WithMetrics(m))
	ctx := context.Background()

	if _, err := d.Call(ctx, simmod.Blake2s, []types.Descriptor{types.BufferType}, []any{types.Buffer("x")}, []types.Descriptor{types.Buffer32Type}); err != nil {
		t.Fatal(err)
	}
	_, _ = d.Call(ctx, simmod.Blake2s, []types.Descriptor{types.BufferType}, []any{42}, []types.Descriptor{types.Buffer32Type})
	_, _ = d.Call(ctx, "missing", nil, nil, nil)

	if got := testutil.ToFloat64(m.calls.WithLabelValues(simmod.Blake2s, OutcomeOK)); got != 1 {
		t.Errorf("ok calls = %v", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues(simmod.Blake2s, OutcomeCaller)); got != 1 {
		t.Errorf("caller faults = %v", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("missing", OutcomeDispatch)); got != 1 {
		t.Errorf("dispatch failures = %v", got)
	}
	if got := testutil.ToFloat64(m.liveAllocations); got != 0 {
		t.Errorf("live allocations = %v", got)
	}
	if got := testutil.ToFloat64(m.allocatedBytes); got == 0 {
		t.Error("allocated bytes not counted")
	}

	if _, err := NewMetrics(reg, "bridge"); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestCall_FreeFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	mod := simmod.New(nil)
	d := New(mod, WithLogger(zap.New(core)))

	// Stores a pointer the allocator never handed out. It reads as an empty vector.
	mod.Register("bogus_pointer", func(_ context.Context, m *simmod.Module, p []uint64) ([]uint64, error) {
		return nil, m.Memory().WriteU32(addr(p[0]), 8)
	})

	out, err := d.Call(context.Background(), "bogus_pointer", nil, nil, frVec)
	if err != nil {
		t.Fatal(err)
	}
	if len(out[0].([]types.Fr)) != 0 {
		t.Errorf("out = %v", out)
	}
	if logs.FilterMessage("free result memory").Len() != 1 {
		t.Errorf("warnings = %v", logs.All())
	}
}

func TestParseConvention(t *testing.T) {
	for _, c := range []Convention{OutPointers, ReturnPointer} {
		got, err := ParseConvention(c.String())
		if err != nil || got != c {
			t.Errorf("ParseConvention(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseConvention("stack"); err == nil {
		t.Error("unknown convention accepted")
	}
}
