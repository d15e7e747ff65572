package engine

import (
	"context"
	"io"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/crypto-bridge/errors"
)

// Config holds configuration for engine creation
type Config struct {
	// Logger receives module log lines and engine diagnostics.
	// Nil uses Logger().
	Logger *zap.Logger

	// Stdout and Stderr receive the module's WASI output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// RandSource backs WASI random_get. Nil uses crypto/rand.
	RandSource io.Reader

	// AllocExport and FreeExport name the module's allocator exports.
	// Empty means search bbmalloc/bbfree, malloc/free, alloc/dealloc.
	AllocExport string
	FreeExport  string

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// HardwareConcurrency is what env_hardware_concurrency reports.
	// 0 reports 1, keeping the module single threaded.
	HardwareConcurrency uint32
}

// Engine owns a wazero runtime shared by every module compiled on it
type Engine struct {
	runtime wazero.Runtime
	logger  *zap.Logger
	cfg     Config
	mu      sync.Mutex
	closed  bool
}

// New creates an engine and instantiates its host modules
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	e := &Engine{}
	if cfg != nil {
		e.cfg = *cfg
	}
	e.logger = e.cfg.Logger
	if e.logger == nil {
		e.logger = Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if e.cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(e.cfg.MemoryLimitPages)
	}
	e.runtime = wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if err := e.instantiateHost(ctx); err != nil {
		_ = e.runtime.Close(ctx)
		return nil, err
	}
	return e, nil
}

// Compile compiles wasm and checks that every import is provided
func (e *Engine) Compile(ctx context.Context, wasm []byte) (*CompiledModule, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if len(wasm) == 0 {
		return nil, errors.Load("empty module binary", nil)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	var missing []string
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		if !e.provides(module, name) {
			missing = append(missing, module+"#"+name)
		}
	}
	if len(missing) > 0 {
		_ = compiled.Close(ctx)
		return nil, errors.NewMissingImportsError(missing)
	}

	e.logger.Debug("module compiled",
		zap.Int("bytes", len(wasm)),
		zap.Int("exports", len(compiled.ExportedFunctions())),
		zap.Int("imports", len(compiled.ImportedFunctions())))

	return &CompiledModule{engine: e, compiled: compiled}, nil
}

// provides reports whether a host module exports module.name
func (e *Engine) provides(module, name string) bool {
	host := e.runtime.Module(module)
	if host == nil {
		return false
	}
	_, ok := host.ExportedFunctionDefinitions()[name]
	return ok
}

// Close releases the runtime and every instance created from it
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(ctx)
}

func (e *Engine) checkOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed("engine")
	}
	return nil
}

// CompiledModule is a compiled module ready for instantiation
type CompiledModule struct {
	engine   *Engine
	compiled wazero.CompiledModule
}

// Exports returns the sorted names of exported functions
func (m *CompiledModule) Exports() []string {
	return sortedKeys(m.compiled.ExportedFunctions())
}

// Imports returns the function imports as "module#name", in declaration order
func (m *CompiledModule) Imports() []string {
	defs := m.compiled.ImportedFunctions()
	out := make([]string, 0, len(defs))
	for _, def := range defs {
		module, name, _ := def.Import()
		out = append(out, module+"#"+name)
	}
	return out
}

// Instantiate creates an isolated instance. Each instance has its own memory.
func (m *CompiledModule) Instantiate(ctx context.Context) (*Instance, error) {
	e := m.engine
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().
		WithName(""). // anonymous so several instances can coexist
		WithStartFunctions(initializeExport)
	if e.cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(e.cfg.Stdout)
	}
	if e.cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(e.cfg.Stderr)
	}
	if e.cfg.RandSource != nil {
		modCfg = modCfg.WithRandSource(e.cfg.RandSource)
	}

	mod, err := e.runtime.InstantiateModule(ctx, m.compiled, modCfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	mem := mod.Memory()
	if mem == nil {
		_ = mod.Close(ctx)
		return nil, errors.Instantiation(errors.NotFound(errors.PhaseLoad, "export", memoryExport))
	}

	allocFn, freeFn := findAllocator(mod, e.cfg.AllocExport, e.cfg.FreeExport)
	if allocFn == nil || freeFn == nil {
		_ = mod.Close(ctx)
		return nil, errors.Instantiation(errors.NotFound(errors.PhaseLoad, "allocator export", allocatorName(e.cfg)))
	}

	inst := &Instance{
		mod:    mod,
		memory: &Memory{mem: mem},
		alloc:  newAllocator(allocFn, freeFn),
		funcs:  make(map[string]api.Function),
		logger: e.logger,
	}
	e.logger.Debug("module instantiated",
		zap.String("alloc", allocFn.Definition().Name()),
		zap.String("free", freeFn.Definition().Name()),
		zap.Uint32("memory_bytes", mem.Size()))
	return inst, nil
}

// Close releases the compiled code
func (m *CompiledModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

func allocatorName(cfg Config) string {
	if cfg.AllocExport != "" || cfg.FreeExport != "" {
		return cfg.AllocExport + "/" + cfg.FreeExport
	}
	return bbMalloc + "/" + bbFree
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
