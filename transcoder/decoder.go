package transcoder

import (
	"encoding/binary"
	"strconv"

	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/types"
)

type Decoder struct{}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads one value per descriptor, left to right from offset 0.
// Trailing bytes are ignored. On error no values are returned.
func (d *Decoder) Decode(src Source, descs []types.Descriptor) ([]any, error) {
	out, _, err := d.DecodeAt(src, 0, descs)
	return out, err
}

// DecodeAt decodes starting at offset and returns the offset after the last value.
func (d *Decoder) DecodeAt(src Source, offset uint32, descs []types.Descriptor) ([]any, uint32, error) {
	out := make([]any, len(descs))
	for i, desc := range descs {
		v, next, err := d.decodeValue(src, offset, desc, []string{"out[" + strconv.Itoa(i) + "]"})
		if err != nil {
			return nil, 0, err
		}
		out[i] = v
		offset = next
	}
	return out, offset, nil
}

// Width returns the packed size of descs if every descriptor is fixed-width
func Width(descs []types.Descriptor) (uint32, bool) {
	var total uint32
	for _, d := range descs {
		w, ok := d.FixedWidth()
		if !ok {
			return 0, false
		}
		total += w
	}
	return total, true
}

// Extent measures the encoded size of the value at offset by following its
// length and count prefixes. Nothing is decoded.
func (d *Decoder) Extent(src Source, offset uint32, desc types.Descriptor) (uint32, error) {
	end, err := d.skip(src, offset, desc, []string{"extent"})
	if err != nil {
		return 0, err
	}
	return end - offset, nil
}

func (d *Decoder) skip(src Source, offset uint32, desc types.Descriptor, path []string) (uint32, error) {
	if w, ok := desc.FixedWidth(); ok {
		if _, err := read(src, offset, w, desc, path); err != nil {
			return 0, err
		}
		return offset + w, nil
	}

	n, err := readPrefix(src, offset, desc, path)
	if err != nil {
		return 0, err
	}
	offset += types.PrefixSize

	if desc.Kind() == types.KindBuffer {
		if err := checkBuffer(src, offset, n, desc, path); err != nil {
			return 0, err
		}
		return offset + n, nil
	}

	elem, _ := desc.Elem()
	if err := checkSequence(src, offset, n, elem, desc, path); err != nil {
		return 0, err
	}
	if w, ok := elem.FixedWidth(); ok {
		return offset + n*w, nil
	}
	for i := uint32(0); i < n; i++ {
		if offset, err = d.skip(src, offset, elem, path); err != nil {
			return 0, err
		}
	}
	return offset, nil
}

func (d *Decoder) decodeValue(src Source, offset uint32, desc types.Descriptor, path []string) (any, uint32, error) {
	if w, ok := desc.FixedWidth(); ok {
		b, err := read(src, offset, w, desc, path)
		if err != nil {
			return nil, 0, err
		}
		return decodeFixed(desc, b), offset + w, nil
	}

	n, err := readPrefix(src, offset, desc, path)
	if err != nil {
		return nil, 0, err
	}
	offset += types.PrefixSize

	if desc.Kind() == types.KindBuffer {
		if err := checkBuffer(src, offset, n, desc, path); err != nil {
			return nil, 0, err
		}
		b, err := read(src, offset, n, desc, path)
		if err != nil {
			return nil, 0, err
		}
		return types.Buffer(append([]byte{}, b...)), offset + n, nil
	}

	elem, _ := desc.Elem()
	if err := checkSequence(src, offset, n, elem, desc, path); err != nil {
		return nil, 0, err
	}

	switch elem.Kind() {
	case types.KindFr:
		return decodeSequence[types.Fr](d, src, offset, n, elem, path)
	case types.KindFq:
		return decodeSequence[types.Fq](d, src, offset, n, elem, path)
	case types.KindPoint:
		return decodeSequence[types.Point](d, src, offset, n, elem, path)
	case types.KindBuffer32:
		return decodeSequence[types.Buffer32](d, src, offset, n, elem, path)
	case types.KindBuffer128:
		return decodeSequence[types.Buffer128](d, src, offset, n, elem, path)
	case types.KindBool:
		return decodeSequence[bool](d, src, offset, n, elem, path)
	case types.KindNumber:
		return decodeSequence[uint32](d, src, offset, n, elem, path)
	case types.KindBuffer:
		return decodeSequence[types.Buffer](d, src, offset, n, elem, path)
	default:
		return decodeSequence[any](d, src, offset, n, elem, path)
	}
}

func decodeSequence[T any](d *Decoder, src Source, offset, n uint32, elem types.Descriptor, path []string) (any, uint32, error) {
	out := make([]T, n)
	for i := range out {
		v, next, err := d.decodeValue(src, offset, elem, subpath(path, "["+strconv.Itoa(i)+"]"))
		if err != nil {
			return nil, 0, err
		}
		out[i] = v.(T)
		offset = next
	}
	return out, offset, nil
}

// decodeFixed copies b into a fresh value; the result never aliases b
func decodeFixed(desc types.Descriptor, b []byte) any {
	switch desc.Kind() {
	case types.KindFr:
		return types.Fr(b)
	case types.KindFq:
		return types.Fq(b)
	case types.KindPoint:
		var p types.Point
		copy(p.X[:], b[:types.FieldSize])
		copy(p.Y[:], b[types.FieldSize:])
		return p
	case types.KindBuffer32:
		return types.Buffer32(b)
	case types.KindBuffer128:
		return types.Buffer128(b)
	case types.KindBool:
		return b[0] != 0
	case types.KindNumber:
		return binary.BigEndian.Uint32(b)
	}
	return nil
}

// checkBuffer rejects a length prefix that runs past the region or exceeds
// MaxBufferSize. Both surface as TruncatedResult.
func checkBuffer(src Source, offset, n uint32, desc types.Descriptor, path []string) error {
	if uint64(offset)+uint64(n) > uint64(src.Len()) {
		return truncated(src, offset, n, desc, path)
	}
	if n > MaxBufferSize {
		return errors.New(errors.PhaseDecode, errors.KindTruncatedResult).
			Path(path...).
			Descriptor(desc.String()).
			Detail("buffer length %d exceeds limit %d", n, MaxBufferSize).
			Build()
	}
	return nil
}

// checkSequence rejects a count whose fixed-width elements run past the region,
// then a count above MaxSequenceLength.
func checkSequence(src Source, offset, n uint32, elem, desc types.Descriptor, path []string) error {
	if w, ok := elem.FixedWidth(); ok {
		size := uint64(n) * uint64(w)
		if uint64(offset)+size > uint64(src.Len()) {
			return truncated(src, offset, uint32(min(size, uint64(^uint32(0)))), desc, path)
		}
	}
	if n > MaxSequenceLength {
		return errors.New(errors.PhaseDecode, errors.KindTruncatedResult).
			Path(path...).
			Descriptor(desc.String()).
			Detail("sequence count %d exceeds limit %d", n, MaxSequenceLength).
			Build()
	}
	return nil
}

func readPrefix(src Source, offset uint32, desc types.Descriptor, path []string) (uint32, error) {
	b, err := read(src, offset, types.PrefixSize, desc, path)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func read(src Source, offset, n uint32, desc types.Descriptor, path []string) ([]byte, error) {
	b, ok := src.ReadAt(offset, n)
	if !ok {
		return nil, truncated(src, offset, n, desc, path)
	}
	return b, nil
}

func truncated(src Source, offset, need uint32, desc types.Descriptor, path []string) error {
	var have uint32
	if l := src.Len(); l > offset {
		have = l - offset
	}
	return errors.Truncated(path, desc.String(), need, have)
}
