// Package engine runs the native crypto module on wazero.
//
// The engine package provides three main types:
//
//	Engine          - owns a wazero runtime and the host modules
//	CompiledModule  - a compiled module whose imports have been checked
//	Instance        - a running module implementing cryptobridge.Module
//
// # Instantiation Flow
//
//  1. New creates the runtime and instantiates the host modules once
//  2. Engine.Compile compiles the binary and fails with a
//     MissingImportsError when the module imports something the host lacks
//  3. CompiledModule.Instantiate creates an isolated instance and runs
//     _initialize when the module is a WASI reactor
//  4. Instance exposes memory, the allocator exports and raw calls
//
// # Host Imports
//
// Two host modules are provided:
//
//	wasi_snapshot_preview1     wazero's WASI implementation
//	env.logstr(ptr)            logs a NUL-terminated string from module memory
//	env.env_hardware_concurrency() -> i32
//
// # Allocator Discovery
//
// The instance allocates through the module's own exports, tried in order:
//
//	bbmalloc / bbfree
//	malloc   / free
//	alloc    / dealloc
//
// Config.AllocExport and Config.FreeExport override the search.
//
// # Thread Safety
//
// An Engine may compile and instantiate from several goroutines. An Instance
// is not safe for concurrent use; create one instance per goroutine.
package engine
