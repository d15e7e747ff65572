package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
)

// Memory wraps wazero memory to implement cryptobridge.Memory.
// Read returns a view that is only valid until the next module call.
type Memory struct {
	mem api.Memory
}

var _ cryptobridge.Memory = (*Memory)(nil)

func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, errors.Closed("memory")
	}
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseRuntime, offset, length, m.mem.Size())
	}
	return data, nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if m.mem == nil {
		return errors.Closed("memory")
	}
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, uint32(len(data)), m.mem.Size())
	}
	return nil
}

func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	if m.mem == nil {
		return 0, errors.Closed("memory")
	}
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseRuntime, offset, 4, m.mem.Size())
	}
	return v, nil
}

func (m *Memory) WriteU32(offset, value uint32) error {
	if m.mem == nil {
		return errors.Closed("memory")
	}
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, 4, m.mem.Size())
	}
	return nil
}

func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// allocator calls the module's allocation exports. Sizes are remembered so
// that a two-parameter free (ptr, size) receives the size it was given.
type allocator struct {
	allocFn api.Function
	freeFn  api.Function
	sizes   map[uint32]uint32
	stack   []uint64
}

var _ cryptobridge.ContextAllocator = (*allocator)(nil)

func newAllocator(allocFn, freeFn api.Function) *allocator {
	return &allocator{
		allocFn: allocFn,
		freeFn:  freeFn,
		sizes:   make(map[uint32]uint32),
		stack:   make([]uint64, 2),
	}
}

func (a *allocator) Alloc(size uint32) (uint32, error) {
	return a.alloc(context.Background(), size)
}

func (a *allocator) Free(ptr uint32) error {
	return a.free(context.Background(), ptr)
}

// WithContext returns a view of the allocator whose calls into the module
// run under ctx
func (a *allocator) WithContext(ctx context.Context) cryptobridge.Allocator {
	return boundAllocator{a: a, ctx: ctx}
}

func (a *allocator) alloc(ctx context.Context, size uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, errors.Closed("allocator")
	}
	a.stack[0] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stack); err != nil {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, err)
	}
	ptr := uint32(a.stack[0])
	if ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseRuntime, size, fmt.Errorf("%s returned null", a.allocFn.Definition().Name()))
	}
	a.sizes[ptr] = size
	return ptr, nil
}

func (a *allocator) free(ctx context.Context, ptr uint32) error {
	if a.freeFn == nil {
		return errors.Closed("allocator")
	}
	if ptr == 0 {
		return nil
	}
	size := a.sizes[ptr]
	delete(a.sizes, ptr)

	a.stack[0], a.stack[1] = uint64(ptr), uint64(size)
	if err := a.freeFn.CallWithStack(ctx, a.stack); err != nil {
		return errors.Wrap(errors.PhaseRuntime, errors.KindAllocation, err, fmt.Sprintf("free %d", ptr))
	}
	return nil
}

type boundAllocator struct {
	a   *allocator
	ctx context.Context
}

func (b boundAllocator) Alloc(size uint32) (uint32, error) { return b.a.alloc(b.ctx, size) }
func (b boundAllocator) Free(ptr uint32) error             { return b.a.free(b.ctx, ptr) }
