package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wippyai/crypto-bridge/errors"
)

// Buffer32 is a fixed 32-byte opaque buffer (signature halves, digests)
type Buffer32 [Buffer32Size]byte

// Buffer128 is a fixed 128-byte opaque buffer (multisig keys and nonces)
type Buffer128 [Buffer128Size]byte

// Buffer is a variable-length byte string
type Buffer []byte

// Buffer32FromBytes copies exactly 32 bytes
func Buffer32FromBytes(b []byte) (Buffer32, error) {
	var out Buffer32
	if len(b) != Buffer32Size {
		return out, errors.InvalidLength(errors.PhaseConstruct, Buffer32Type.String(), Buffer32Size, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Buffer128FromBytes copies exactly 128 bytes
func Buffer128FromBytes(b []byte) (Buffer128, error) {
	var out Buffer128
	if len(b) != Buffer128Size {
		return out, errors.InvalidLength(errors.PhaseConstruct, Buffer128Type.String(), Buffer128Size, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// ParseBuffer32 parses a 0x-prefixed 32-byte hex string
func ParseBuffer32(s string) (Buffer32, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Buffer32{}, errors.ParseFailed(Buffer32Type.String(), err)
	}
	return Buffer32FromBytes(b)
}

// ParseBuffer128 parses a 0x-prefixed 128-byte hex string
func ParseBuffer128(s string) (Buffer128, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Buffer128{}, errors.ParseFailed(Buffer128Type.String(), err)
	}
	return Buffer128FromBytes(b)
}

// ParseBuffer parses 0x-prefixed hex of any length ("0x" is empty)
func ParseBuffer(s string) (Buffer, error) {
	if s == "0x" || s == "0X" {
		return Buffer{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, errors.ParseFailed(BufferType.String(), err)
	}
	return Buffer(b), nil
}

func (b Buffer32) Descriptor() Descriptor { return Buffer32Type }
func (b Buffer32) Bytes() []byte           { return append([]byte(nil), b[:]...) }
func (b Buffer32) String() string          { return hexutil.Encode(b[:]) }

func (b Buffer128) Descriptor() Descriptor { return Buffer128Type }
func (b Buffer128) Bytes() []byte           { return append([]byte(nil), b[:]...) }
func (b Buffer128) String() string          { return hexutil.Encode(b[:]) }

func (b Buffer) Descriptor() Descriptor { return BufferType }
func (b Buffer) Bytes() []byte           { return append([]byte(nil), b...) }
func (b Buffer) String() string          { return hexutil.Encode(b) }
