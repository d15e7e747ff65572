package engine

import (
	"bytes"
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/crypto-bridge/errors"
)

const (
	envModule  = "env"
	maxLogLine = 4096
)

// instantiateHost registers WASI and the env module on the engine's runtime
func (e *Engine) instantiateHost(ctx context.Context) error {
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
		return errors.Registration(errors.PhaseHost, wasi_snapshot_preview1.ModuleName, "*", err)
	}

	concurrency := e.cfg.HardwareConcurrency
	if concurrency == 0 {
		concurrency = 1
	}

	_, err := e.runtime.NewHostModuleBuilder(envModule).
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, m api.Module, ptr uint32) {
			e.logger.Debug("module log", zap.String("line", readCString(m.Memory(), ptr)))
		}).
		WithParameterNames("ptr").
		Export("logstr").
		NewFunctionBuilder().
		WithFunc(func(context.Context) uint32 {
			return concurrency
		}).
		Export("env_hardware_concurrency").
		Instantiate(ctx)
	if err != nil {
		return errors.Registration(errors.PhaseHost, envModule, "*", err)
	}
	return nil
}

// readCString reads a NUL-terminated string at ptr, capped at maxLogLine
func readCString(mem api.Memory, ptr uint32) string {
	if mem == nil || ptr >= mem.Size() {
		return ""
	}
	n := mem.Size() - ptr
	if n > maxLogLine {
		n = maxLogLine
	}
	b, ok := mem.Read(ptr, n)
	if !ok {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
