// Package cryptobridge provides a typed marshalling bridge into a memory-isolated
// native cryptography module (a barretenberg-style WebAssembly build).
//
// The host never implements the cryptography itself. It encodes typed domain
// values into the module's calling convention, copies them into the module's
// linear memory, invokes a named export and decodes the bytes the module
// produced back into typed values.
//
// # Architecture Overview
//
//	cryptobridge/        Root package with Memory, Allocator and Module contracts
//	├── types/           Fr, Fq, Point, Buffer32, Buffer128, Buffer and Descriptor
//	├── transcoder/      Encoding of arguments and decoding of results
//	├── dispatch/        The single call primitive that crosses the boundary
//	├── engine/          wazero integration (compile, instantiate, host imports)
//	├── bindings/        One typed method per native export
//	├── runtime/         High-level API for loading a module and calling it
//	└── errors/          Structured error types
//
// # Quick Start
//
//	rt, err := runtime.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	inst, err := rt.LoadFile(ctx, "barretenberg.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	h, err := inst.API().PedersenCompressFields(ctx, left, right)
//
// # Wire Format
//
// Fixed-width values (fields, points, fixed buffers) are raw bytes. Variable
// buffers carry a 4-byte big-endian length prefix, sequences a 4-byte
// big-endian element count. Values are packed left to right without padding.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Instance, Dispatcher and Module are NOT
// thread-safe: exactly one call may be in flight per module instance, so
// callers sharing an instance must serialize access.
//
// # Memory Model
//
// Every block the host allocates inside the module for a call, and every
// result buffer the module hands back, is released before the call returns,
// on success and failure alike.
package cryptobridge
