package engine

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
)

// Instance is a running module. It implements cryptobridge.Module.
type Instance struct {
	mod    api.Module
	memory *Memory
	alloc  *allocator
	funcs  map[string]api.Function
	logger *zap.Logger
}

var _ cryptobridge.Module = (*Instance)(nil)

func (i *Instance) Memory() cryptobridge.Memory       { return i.memory }
func (i *Instance) Allocator() cryptobridge.Allocator { return i.alloc }

// HasExport reports whether name is an exported function
func (i *Instance) HasExport(name string) bool {
	return i.function(name) != nil
}

// ExportNames returns the sorted names of exported functions
func (i *Instance) ExportNames() []string {
	if i.mod == nil {
		return nil
	}
	return sortedKeys(i.mod.ExportedFunctionDefinitions())
}

func (i *Instance) function(name string) api.Function {
	if i.mod == nil {
		return nil
	}
	if fn, ok := i.funcs[name]; ok {
		return fn
	}
	fn := i.mod.ExportedFunction(name)
	if fn != nil {
		i.funcs[name] = fn
	}
	return fn
}

// Call invokes an exported function with raw wasm values.
// A trap is returned as an error; the instance stays usable.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.mod == nil {
		return nil, errors.Closed("instance")
	}
	fn := i.function(name)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseRuntime, "export", name)
	}
	if want := len(fn.Definition().ParamTypes()); want != len(params) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
			Export(name).
			Detail("export takes %d params, got %d", want, len(params)).
			Build()
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		i.logger.Debug("export call failed", zap.String("export", name), zap.Error(err))
		return nil, err
	}
	return results, nil
}

// Close releases the instance. Further calls fail.
func (i *Instance) Close(ctx context.Context) error {
	if i.mod == nil {
		return nil
	}
	err := i.mod.Close(ctx)
	i.mod = nil
	i.funcs = nil
	i.memory.mem = nil
	i.alloc.allocFn, i.alloc.freeFn = nil, nil
	return err
}
