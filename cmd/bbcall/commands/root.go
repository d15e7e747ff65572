package commands

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/crypto-bridge/bindings"
	"github.com/wippyai/crypto-bridge/dispatch"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/internal/simmod"
	"github.com/wippyai/crypto-bridge/runtime"
)

var (
	wasmPath    string
	simulated   bool
	convention  string
	memoryPages uint32
	verbose     bool
	metricsAddr string

	logger   *zap.Logger
	registry *prometheus.Registry
)

func Execute() error {
	return newRoot().Execute()
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "bbcall",
		Short:         "Call exports of a native crypto module",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			}

			if _, err := dispatch.ParseConvention(convention); err != nil {
				return err
			}

			if metricsAddr != "" {
				registry = prometheus.NewRegistry()
				serveMetrics(metricsAddr, registry)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&wasmPath, "wasm", "", "path to the module binary")
	root.PersistentFlags().BoolVar(&simulated, "sim", false, "use the built-in simulated module")
	root.PersistentFlags().StringVar(&convention, "convention", dispatch.OutPointers.String(), "return convention (out-pointers, return-pointer)")
	root.PersistentFlags().Uint32Var(&memoryPages, "memory-pages", 0, "memory limit in 64KB pages (0 = no limit)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log calls and module output")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(listCmd(), callCmd(), interactiveCmd())
	return root
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

func config() *runtime.Config {
	conv, _ := dispatch.ParseConvention(convention)
	cfg := &runtime.Config{
		Logger:           logger,
		MemoryLimitPages: memoryPages,
		Convention:       conv,
	}
	if registry != nil {
		cfg.Registerer = registry
	}
	return cfg
}

// session is an open module with its cleanup
type session struct {
	inst    *runtime.Instance
	module  *runtime.Module
	rt      *runtime.Runtime
	label   string
	missing map[string]bool
}

// open loads the module selected by the flags. Without --wasm the simulated
// module is used.
func open(ctx context.Context) (*session, error) {
	if simulated || wasmPath == "" {
		inst, err := runtime.Wrap(simmod.New(nil), config())
		if err != nil {
			return nil, err
		}
		return newSession(inst, "simulated"), nil
	}

	rt, err := runtime.New(ctx, config())
	if err != nil {
		return nil, err
	}
	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("read "+wasmPath, err)
	}
	mod, err := rt.Compile(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	inst, err := mod.Instantiate(ctx)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	s := newSession(inst, wasmPath)
	s.module, s.rt = mod, rt
	return s, nil
}

func newSession(inst *runtime.Instance, label string) *session {
	s := &session{inst: inst, label: label, missing: make(map[string]bool)}
	for _, e := range bindings.Exports {
		if !inst.Module().HasExport(e.Name) {
			s.missing[e.Name] = true
		}
	}
	return s
}

func (s *session) Close(ctx context.Context) {
	_ = s.inst.Close(ctx)
	if s.module != nil {
		_ = s.module.Close(ctx)
	}
	if s.rt != nil {
		_ = s.rt.Close(ctx)
	}
}
