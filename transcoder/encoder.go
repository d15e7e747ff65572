package transcoder

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/types"
)

// Safety limits for a single value
const (
	MaxBufferSize     = 64 << 20 // 64 MB
	MaxSequenceLength = 1 << 20
)

// Arg is one encoded argument. A top-level number travels by value; every
// other argument is a byte region the dispatcher copies into module memory.
type Arg struct {
	Desc    types.Descriptor
	Bytes   []byte
	Value   uint64
	ByValue bool
}

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeArgs checks every argument against its descriptor and encodes it.
// Nothing is written anywhere; the result is independent of the inputs.
func (e *Encoder) EncodeArgs(descs []types.Descriptor, args []any) ([]Arg, error) {
	if len(descs) != len(args) {
		return nil, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Detail("argument count mismatch: expected %d, got %d", len(descs), len(args)).
			Build()
	}

	out := make([]Arg, len(descs))
	for i, d := range descs {
		path := []string{"arg[" + strconv.Itoa(i) + "]"}
		if d.Kind() == types.KindNumber {
			n, err := coerceNumber(args[i], path)
			if err != nil {
				return nil, err
			}
			out[i] = Arg{Desc: d, Value: uint64(n), ByValue: true}
			continue
		}

		buf := getBuf()
		b, err := e.appendValue(*buf, d, args[i], path)
		if err != nil {
			putBuf(buf)
			return nil, err
		}
		out[i] = Arg{Desc: d, Bytes: append([]byte(nil), b...)}
		*buf = b
		putBuf(buf)
	}
	return out, nil
}

// EncodeValue encodes a single value, including any length or count prefix.
func (e *Encoder) EncodeValue(d types.Descriptor, v any) ([]byte, error) {
	return e.appendValue(nil, d, v, nil)
}

func (e *Encoder) appendValue(dst []byte, d types.Descriptor, v any, path []string) ([]byte, error) {
	switch d.Kind() {
	case types.KindFr:
		switch x := v.(type) {
		case types.Fr:
			return append(dst, x[:]...), nil
		case *types.Fr:
			if x != nil {
				return append(dst, x[:]...), nil
			}
		default:
			return appendRaw(dst, d, v, path)
		}

	case types.KindFq:
		switch x := v.(type) {
		case types.Fq:
			return append(dst, x[:]...), nil
		case *types.Fq:
			if x != nil {
				return append(dst, x[:]...), nil
			}
		default:
			return appendRaw(dst, d, v, path)
		}

	case types.KindPoint:
		switch x := v.(type) {
		case types.Point:
			dst = append(dst, x.X[:]...)
			return append(dst, x.Y[:]...), nil
		case *types.Point:
			if x != nil {
				dst = append(dst, x.X[:]...)
				return append(dst, x.Y[:]...), nil
			}
		default:
			return appendRaw(dst, d, v, path)
		}

	case types.KindBuffer32:
		switch x := v.(type) {
		case types.Buffer32:
			return append(dst, x[:]...), nil
		case [types.Buffer32Size]byte:
			return append(dst, x[:]...), nil
		default:
			return appendRaw(dst, d, v, path)
		}

	case types.KindBuffer128:
		switch x := v.(type) {
		case types.Buffer128:
			return append(dst, x[:]...), nil
		case [types.Buffer128Size]byte:
			return append(dst, x[:]...), nil
		default:
			return appendRaw(dst, d, v, path)
		}

	case types.KindBool:
		if x, ok := v.(bool); ok {
			if x {
				return append(dst, 1), nil
			}
			return append(dst, 0), nil
		}

	case types.KindNumber:
		n, err := coerceNumber(v, path)
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint32(dst, n), nil

	case types.KindBuffer:
		var b []byte
		switch x := v.(type) {
		case types.Buffer:
			b = x
		case []byte:
			b = x
		case string:
			b = []byte(x)
		default:
			return nil, mismatch(d, v, path)
		}
		if len(b) > MaxBufferSize {
			return nil, errors.New(errors.PhaseEncode, errors.KindOverflow).
				Path(path...).
				Descriptor(d.String()).
				Detail("buffer of %d bytes exceeds limit %d", len(b), MaxBufferSize).
				Build()
		}
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
		return append(dst, b...), nil

	case types.KindSequence:
		return e.appendSequence(dst, d, v, path)
	}

	return nil, mismatch(d, v, path)
}

func (e *Encoder) appendSequence(dst []byte, d types.Descriptor, v any, path []string) ([]byte, error) {
	elem, _ := d.Elem()
	if v == nil {
		return nil, mismatch(d, v, path)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, mismatch(d, v, path)
	}

	n := rv.Len()
	if n > MaxSequenceLength {
		return nil, errors.New(errors.PhaseEncode, errors.KindOverflow).
			Path(path...).
			Descriptor(d.String()).
			Detail("sequence of %d elements exceeds limit %d", n, MaxSequenceLength).
			Build()
	}

	dst = binary.BigEndian.AppendUint32(dst, uint32(n))
	for i := 0; i < n; i++ {
		var err error
		dst, err = e.appendValue(dst, elem, rv.Index(i).Interface(), subpath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// appendRaw accepts untyped bytes for a fixed-width descriptor when the length matches
func appendRaw(dst []byte, d types.Descriptor, v any, path []string) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, mismatch(d, v, path)
	}
	w, _ := d.FixedWidth()
	if uint32(len(b)) != w {
		err := errors.InvalidLength(errors.PhaseEncode, d.String(), int(w), len(b))
		err.Path = path
		return nil, err
	}
	return append(dst, b...), nil
}

// subpath never shares a backing array with path
func subpath(path []string, elem string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = elem
	return p
}

func mismatch(d types.Descriptor, v any, path []string) error {
	return errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), d.String())
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func coerceNumber(v any, path []string) (uint32, error) {
	var n uint64
	switch x := v.(type) {
	case uint32:
		return x, nil
	case uint8:
		return uint32(x), nil
	case uint16:
		return uint32(x), nil
	case uint:
		n = uint64(x)
	case uint64:
		n = x
	case int:
		if x < 0 {
			return 0, errors.Overflow(errors.PhaseEncode, path, x, "number")
		}
		n = uint64(x)
	case int32:
		if x < 0 {
			return 0, errors.Overflow(errors.PhaseEncode, path, x, "number")
		}
		n = uint64(x)
	case int64:
		if x < 0 {
			return 0, errors.Overflow(errors.PhaseEncode, path, x, "number")
		}
		n = uint64(x)
	default:
		return 0, errors.TypeMismatch(errors.PhaseEncode, path, typeName(v), "number")
	}
	if n > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseEncode, path, v, "number")
	}
	return uint32(n), nil
}
