package simmod

import (
	"context"
	"fmt"
	"sort"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
)

// Func implements one export. Params and results are raw wasm values.
type Func func(ctx context.Context, m *Module, params []uint64) ([]uint64, error)

// Trap is returned when an export aborts, the equivalent of a wasm trap
type Trap struct {
	Export string
	Reason string
}

func (t *Trap) Error() string {
	return fmt.Sprintf("wasm trap in %s: %s", t.Export, t.Reason)
}

// Config controls the module's memory
type Config struct {
	InitialPages uint32
	MaxPages     uint32
	Bare         bool // skip the standard exports
}

// Module is a simulated native module
type Module struct {
	mem     *Memory
	heap    *Allocator
	exports map[string]Func
	calls   map[string]int
	current string
}

var _ cryptobridge.Module = (*Module)(nil)

// New creates a module. A nil cfg gives one initial page, a 256 page limit
// and the standard exports.
func New(cfg *Config) *Module {
	if cfg == nil {
		cfg = &Config{}
	}
	initial, limit := cfg.InitialPages, cfg.MaxPages
	if initial == 0 {
		initial = 1
	}
	if limit == 0 {
		limit = 256
	}
	if limit < initial {
		limit = initial
	}

	mem := newMemory(initial, limit)
	m := &Module{
		mem:     mem,
		heap:    newAllocator(mem),
		exports: make(map[string]Func),
		calls:   make(map[string]int),
	}
	if !cfg.Bare {
		registerStandard(m)
	}
	return m
}

func (m *Module) Memory() cryptobridge.Memory       { return m.mem }
func (m *Module) Allocator() cryptobridge.Allocator { return m.heap }

// Heap exposes the allocator with its accounting methods
func (m *Module) Heap() *Allocator { return m.heap }

func (m *Module) HasExport(name string) bool {
	_, ok := m.exports[name]
	return ok
}

// Register adds or replaces an export
func (m *Module) Register(name string, fn Func) {
	m.exports[name] = fn
}

// Unregister removes an export
func (m *Module) Unregister(name string) {
	delete(m.exports, name)
}

// Exports returns the sorted export names
func (m *Module) Exports() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calls returns how many times name was invoked
func (m *Module) Calls(name string) int { return m.calls[name] }

// Call invokes an export. A panic inside the export becomes a Trap.
func (m *Module) Call(ctx context.Context, name string, params ...uint64) (results []uint64, err error) {
	fn, ok := m.exports[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	m.calls[name]++
	m.current = name

	defer func() {
		if r := recover(); r != nil {
			results = nil
			err = &Trap{Export: name, Reason: fmt.Sprint(r)}
		}
	}()
	return fn(ctx, m, params)
}

// Trap builds a trap for the export being executed
func (m *Module) Trap(format string, args ...any) error {
	return &Trap{Export: m.current, Reason: fmt.Sprintf(format, args...)}
}
