package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	cryptobridge "github.com/wippyai/crypto-bridge"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/transcoder"
	"github.com/wippyai/crypto-bridge/types"
)

// Dispatcher invokes exports of one native module
type Dispatcher struct {
	mod     cryptobridge.Module
	enc     *transcoder.Encoder
	dec     *transcoder.Decoder
	logger  *zap.Logger
	metrics *Metrics
	conv    Convention
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithConvention selects the return convention
func WithConvention(c Convention) Option {
	return func(d *Dispatcher) { d.conv = c }
}

// WithLogger sets the logger; nil keeps the no-op default
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics reports calls and allocations into m
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New creates a Dispatcher for mod
func New(mod cryptobridge.Module, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mod:    mod,
		enc:    transcoder.NewEncoder(),
		dec:    transcoder.NewDecoder(),
		logger: zap.NewNop(),
		conv:   OutPointers,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Module returns the module calls are dispatched to
func (d *Dispatcher) Module() cryptobridge.Module { return d.mod }

// Convention returns the return convention in use
func (d *Dispatcher) Convention() Convention { return d.conv }

// Call invokes export with args described by in and decodes outputs described by out.
//
// Argument errors (TypeMismatch, InvalidLength) are reported before the module
// is touched. A missing export, allocation failure, trap or failure status is a
// DispatchFailure. Results that run short are a TruncatedResult. No partial
// results are returned and nothing is retried.
func (d *Dispatcher) Call(ctx context.Context, export string, in []types.Descriptor, args []any, out []types.Descriptor) ([]any, error) {
	start := time.Now()
	results, err := d.call(ctx, export, in, args, out)
	elapsed := time.Since(start)

	d.metrics.observe(export, outcome(err), elapsed)
	if err != nil {
		d.logger.Debug("native call failed",
			zap.String("export", export),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	d.logger.Debug("native call",
		zap.String("export", export),
		zap.Int("args", len(args)),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", elapsed))
	return results, nil
}

func (d *Dispatcher) call(ctx context.Context, export string, in []types.Descriptor, args []any, out []types.Descriptor) ([]any, error) {
	encoded, err := d.enc.EncodeArgs(in, args)
	if err != nil {
		return nil, withExport(err, export)
	}

	if d.mod == nil {
		return nil, errors.Dispatch(export, "no module", errors.NotInitialized(errors.PhaseDispatch, "module"))
	}
	if !d.mod.HasExport(export) {
		return nil, errors.Dispatch(export, "export not found", nil)
	}

	c := &callState{
		d:      d,
		export: export,
		mem:    d.mod.Memory(),
		alloc:  d.mod.Allocator(),
		freer:  d.mod.Allocator(),
		host:   transcoder.NewAllocationList(),
		owned:  transcoder.NewAllocationList(),
	}
	if ca, ok := c.alloc.(cryptobridge.ContextAllocator); ok {
		c.alloc = ca.WithContext(ctx)
		// release runs even after ctx is cancelled
		c.freer = ca.WithContext(context.WithoutCancel(ctx))
	}
	defer c.release()

	params := make([]uint64, 0, len(encoded)+len(out))
	for _, a := range encoded {
		if a.ByValue {
			params = append(params, a.Value)
			continue
		}
		ptr, err := c.place(a.Bytes)
		if err != nil {
			return nil, err
		}
		params = append(params, uint64(ptr))
	}

	switch d.conv {
	case ReturnPointer:
		return c.returnPointer(ctx, params, out)
	default:
		return c.outPointers(ctx, params, out)
	}
}

// callState holds the module memory a single call owns
type callState struct {
	d      *Dispatcher
	mem    cryptobridge.Memory
	alloc  cryptobridge.Allocator
	freer  cryptobridge.Allocator
	host   *transcoder.AllocationList
	owned  *transcoder.AllocationList
	export string
}

func (c *callState) release() {
	hostCount := c.host.Count()
	if err := c.host.FreeAndRelease(c.freer); err != nil {
		c.d.logger.Warn("free argument memory",
			zap.String("export", c.export),
			zap.Error(err))
	}
	c.d.metrics.released(hostCount)

	if err := c.owned.FreeAndRelease(c.freer); err != nil {
		c.d.logger.Warn("free result memory",
			zap.String("export", c.export),
			zap.Error(err))
	}
}

// reserve allocates a host-owned block of size bytes
func (c *callState) reserve(size uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	ptr, err := c.alloc.Alloc(size)
	if err != nil || ptr == 0 {
		return 0, errors.Dispatch(c.export, "allocate module memory", errors.AllocationFailed(errors.PhaseDispatch, size, err))
	}
	c.host.Add(ptr, size)
	c.d.metrics.allocated(size)
	return ptr, nil
}

// place copies b into a fresh host-owned block
func (c *callState) place(b []byte) (uint32, error) {
	ptr, err := c.reserve(uint32(len(b)))
	if err != nil {
		return 0, err
	}
	if err := c.mem.Write(ptr, b); err != nil {
		return 0, errors.Dispatch(c.export, "copy argument", err)
	}
	return ptr, nil
}

func (c *callState) invoke(ctx context.Context, params []uint64) ([]uint64, error) {
	results, err := c.d.mod.Call(ctx, c.export, params...)
	if err != nil {
		return nil, errors.Dispatch(c.export, "module call failed", err)
	}
	return results, nil
}

type outSlot struct {
	desc   types.Descriptor
	offset uint32
	width  uint32
	fixed  bool
}

func (c *callState) outPointers(ctx context.Context, params []uint64, out []types.Descriptor) ([]any, error) {
	slots := make([]outSlot, len(out))
	var size uint32
	for i, desc := range out {
		w, fixed := desc.FixedWidth()
		if !fixed {
			w = types.PrefixSize
		}
		slots[i] = outSlot{desc: desc, offset: size, width: w, fixed: fixed}
		size += w
	}

	var region uint32
	if len(out) > 0 {
		var err error
		if region, err = c.place(make([]byte, size)); err != nil {
			return nil, err
		}
		for _, s := range slots {
			params = append(params, uint64(region+s.offset))
		}
	}

	results, callErr := c.invoke(ctx, params)

	// Module-allocated buffers are collected before anything else so that
	// they are released even when the call failed.
	ptrs := make([]uint32, len(slots))
	for i, s := range slots {
		if s.fixed {
			continue
		}
		ptr, err := c.mem.ReadU32(region + s.offset)
		if err != nil {
			if callErr == nil {
				return nil, errors.Dispatch(c.export, "read result pointer", err)
			}
			continue
		}
		if ptr != 0 {
			c.owned.Add(ptr, 0)
		}
		ptrs[i] = ptr
	}

	if callErr != nil {
		return nil, callErr
	}
	if len(results) > 0 {
		if status := uint32(results[0]); status != 0 {
			return nil, errors.Dispatch(c.export, fmt.Sprintf("module returned status %d", status), nil)
		}
	}

	stream := make([]byte, 0, size)
	src := transcoder.MemorySource{Mem: c.mem}
	for i, s := range slots {
		if s.fixed {
			b, err := c.mem.Read(region+s.offset, s.width)
			if err != nil {
				return nil, errors.Dispatch(c.export, "read result", err)
			}
			stream = append(stream, b...)
			continue
		}
		if ptrs[i] == 0 {
			return nil, errors.Dispatch(c.export, fmt.Sprintf("null pointer for output %d (%s)", i, s.desc), nil)
		}
		n, err := c.d.dec.Extent(src, ptrs[i], s.desc)
		if err != nil {
			return nil, withExport(err, c.export)
		}
		b, err := c.mem.Read(ptrs[i], n)
		if err != nil {
			return nil, errors.Dispatch(c.export, "read result", err)
		}
		stream = append(stream, b...)
	}

	values, err := c.d.dec.Decode(transcoder.BytesSource(stream), out)
	if err != nil {
		return nil, withExport(err, c.export)
	}
	return values, nil
}

func (c *callState) returnPointer(ctx context.Context, params []uint64, out []types.Descriptor) ([]any, error) {
	results, err := c.invoke(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []any{}, nil
	}
	if len(results) == 0 {
		return nil, errors.Dispatch(c.export, "export returned no value", nil)
	}

	ret := uint32(results[0])
	if len(out) == 1 {
		switch out[0].Kind() {
		case types.KindBool:
			return []any{ret != 0}, nil
		case types.KindNumber:
			return []any{ret}, nil
		}
	}
	if ret == 0 {
		return nil, errors.Dispatch(c.export, "module returned a null result pointer", nil)
	}
	c.owned.Add(ret, 0)

	values, _, err := c.d.dec.DecodeAt(transcoder.MemorySource{Mem: c.mem}, ret, out)
	if err != nil {
		return nil, withExport(err, c.export)
	}
	return values, nil
}

func withExport(err error, export string) error {
	if e, ok := err.(*errors.Error); ok && e.Export == "" {
		e.Export = export
	}
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.IsCallerFault(err):
		return OutcomeCaller
	case errors.IsKind(err, errors.KindTruncatedResult):
		return OutcomeDecode
	default:
		return OutcomeDispatch
	}
}
