package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/wippyai/crypto-bridge/errors"
)

// Point is an affine curve point encoded as X || Y
type Point struct {
	X Fr
	Y Fr
}

// NewPoint builds a point from its coordinates
func NewPoint(x, y Fr) Point { return Point{X: x, Y: y} }

// PointFromBytes splits exactly 64 bytes into X and Y
func PointFromBytes(b []byte) (Point, error) {
	var p Point
	if len(b) != PointSize {
		return p, errors.InvalidLength(errors.PhaseConstruct, PointType.String(), PointSize, len(b))
	}
	copy(p.X[:], b[:FieldSize])
	copy(p.Y[:], b[FieldSize:])
	return p, nil
}

// ParsePoint parses a 0x-prefixed 64-byte hex string
func ParsePoint(s string) (Point, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Point{}, errors.ParseFailed(PointType.String(), err)
	}
	return PointFromBytes(b)
}

func (p Point) Descriptor() Descriptor { return PointType }

func (p Point) Bytes() []byte {
	out := make([]byte, PointSize)
	copy(out, p.X[:])
	copy(out[FieldSize:], p.Y[:])
	return out
}

func (p Point) String() string { return hexutil.Encode(p.Bytes()) }

// IsZero reports whether both coordinates are zero
func (p Point) IsZero() bool { return p == Point{} }
