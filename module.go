package cryptobridge

import "context"

// Memory represents the linear memory of a native module
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
	Size() uint32
}

// Allocator allocates blocks inside a module's linear memory.
// Alloc returns a nonzero pointer on success.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
	Free(ptr uint32) error
}

// ContextAllocator is an Allocator whose blocks are managed by running module
// code. WithContext returns a view that runs that code under ctx.
type ContextAllocator interface {
	Allocator
	WithContext(ctx context.Context) Allocator
}

// Module is a loaded, memory-isolated native module.
//
// Params and results are raw wasm values (i32 carried in the low 32 bits).
// A Module is not safe for concurrent use.
type Module interface {
	Memory() Memory
	Allocator() Allocator
	HasExport(name string) bool
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
}
