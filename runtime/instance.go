package runtime

import (
	"context"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/bindings"
	"github.com/wippyai/crypto-bridge/dispatch"
	"github.com/wippyai/crypto-bridge/errors"
)

// Instance is a module instance with its dispatcher and typed API
type Instance struct {
	module     cryptobridge.Module
	dispatcher *dispatch.Dispatcher
	api        *bindings.API
	closers    []func(context.Context) error
	closed     bool
}

func newInstance(mod cryptobridge.Module, opts []dispatch.Option, closers ...func(context.Context) error) *Instance {
	d := dispatch.New(mod, opts...)
	return &Instance{
		module:     mod,
		dispatcher: d,
		api:        bindings.New(d),
		closers:    closers,
	}
}

// Wrap puts the call surface over an existing module, such as a simulated
// one. Closing the instance does not close mod.
func Wrap(mod cryptobridge.Module, cfg *Config) (*Instance, error) {
	if mod == nil {
		return nil, errors.NotInitialized(errors.PhaseRuntime, "module")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	metrics, err := cfg.metrics()
	if err != nil {
		return nil, err
	}
	return newInstance(mod, cfg.dispatchOptions(metrics)), nil
}

// Module returns the underlying native module
func (i *Instance) Module() cryptobridge.Module { return i.module }

// Dispatcher returns the dispatcher bound to this instance
func (i *Instance) Dispatcher() *dispatch.Dispatcher { return i.dispatcher }

// API returns the typed call surface
func (i *Instance) API() *bindings.API { return i.api }

// Call invokes a bindings export with untyped arguments
func (i *Instance) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	if i.closed {
		return nil, errors.Closed("instance")
	}
	return i.api.Call(ctx, name, args...)
}

// Close releases the instance. It is safe to call more than once.
func (i *Instance) Close(ctx context.Context) error {
	if i.closed {
		return nil
	}
	i.closed = true
	var firstErr error
	for _, c := range i.closers {
		if err := c(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
