package runtime

import (
	"context"

	"github.com/wippyai/crypto-bridge/bindings"
	"github.com/wippyai/crypto-bridge/engine"
)

// Module is a compiled native module
type Module struct {
	runtime  *Runtime
	compiled *engine.CompiledModule
}

// Exports returns the sorted names of exported functions
func (m *Module) Exports() []string {
	return m.compiled.Exports()
}

// Imports returns the function imports as "module#name"
func (m *Module) Imports() []string {
	return m.compiled.Imports()
}

// Missing returns the bindings exports the module does not provide
func (m *Module) Missing() []string {
	have := make(map[string]bool)
	for _, name := range m.compiled.Exports() {
		have[name] = true
	}
	var missing []string
	for _, e := range bindings.Exports {
		if !have[e.Name] {
			missing = append(missing, e.Name)
		}
	}
	return missing
}

// Instantiate creates an isolated instance
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	inst, err := m.compiled.Instantiate(ctx)
	if err != nil {
		return nil, err
	}
	cfg := m.runtime.cfg
	return newInstance(inst, cfg.dispatchOptions(m.runtime.metrics), inst.Close), nil
}

// Close releases the compiled code
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}
