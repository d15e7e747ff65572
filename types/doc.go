// Package types defines the domain values that cross the bridge and the
// descriptors that name their wire layout.
//
// Fixed-width values are distinct Go types so that a field element of one field
// can never be passed where another is expected:
//
//	Fr, Fq       32-byte big-endian field elements
//	Point        64 bytes, X || Y
//	Buffer32     32 raw bytes
//	Buffer128    128 raw bytes
//	Buffer       variable length, 4-byte big-endian length prefix on the wire
//
// Constructors from raw bytes check only the length. Whether the bytes are a
// canonical field element or a point on the curve is the native module's concern.
package types
