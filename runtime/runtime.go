package runtime

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/crypto-bridge/dispatch"
	"github.com/wippyai/crypto-bridge/engine"
	"github.com/wippyai/crypto-bridge/errors"
)

// DefaultNamespace prefixes metric names when Config.Namespace is empty
const DefaultNamespace = "cryptobridge"

// Config holds runtime configuration
type Config struct {
	// Logger is used by the engine and every dispatcher. Nil disables logging.
	Logger *zap.Logger

	// Registerer receives dispatch metrics. Nil disables metrics.
	Registerer prometheus.Registerer
	Namespace  string

	// AllocExport and FreeExport override allocator discovery
	AllocExport string
	FreeExport  string

	// MemoryLimitPages caps each instance's memory in 64KB pages. 0 means no cap.
	MemoryLimitPages uint32

	// Convention selects how outputs travel back from the module
	Convention dispatch.Convention
}

func (c *Config) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Config) metrics() (*dispatch.Metrics, error) {
	if c == nil || c.Registerer == nil {
		return nil, nil
	}
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	m, err := dispatch.NewMetrics(c.Registerer, ns)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindRegistration, err, "register metrics")
	}
	return m, nil
}

func (c *Config) dispatchOptions(m *dispatch.Metrics) []dispatch.Option {
	opts := []dispatch.Option{dispatch.WithLogger(c.logger()), dispatch.WithMetrics(m)}
	if c != nil {
		opts = append(opts, dispatch.WithConvention(c.Convention))
	}
	return opts
}

// Runtime compiles and instantiates native modules
type Runtime struct {
	engine  *engine.Engine
	cfg     *Config
	metrics *dispatch.Metrics
}

// New creates a runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	metrics, err := cfg.metrics()
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, &engine.Config{
		Logger:           cfg.logger(),
		MemoryLimitPages: cfg.MemoryLimitPages,
		AllocExport:      cfg.AllocExport,
		FreeExport:       cfg.FreeExport,
	})
	if err != nil {
		return nil, errors.Load("create engine", err)
	}

	return &Runtime{engine: eng, cfg: cfg, metrics: metrics}, nil
}

// Close releases all runtime resources, including instances not yet closed
func (r *Runtime) Close(ctx context.Context) error {
	return r.engine.Close(ctx)
}

// Compile compiles a module binary for later instantiation
func (r *Runtime) Compile(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := r.engine.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

// Load compiles and instantiates a module binary
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Instance, error) {
	mod, err := r.Compile(ctx, wasm)
	if err != nil {
		return nil, err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		_ = mod.Close(ctx)
		return nil, err
	}
	inst.closers = append(inst.closers, mod.Close)
	return inst, nil
}

// LoadFile reads a module binary from path and loads it
func (r *Runtime) LoadFile(ctx context.Context, path string) (*Instance, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read "+path, err)
	}
	return r.Load(ctx, wasm)
}
