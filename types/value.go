package types

// Value is a typed domain value that knows its own descriptor and raw encoding.
// Bytes returns the value's own bytes, without any length or count prefix.
type Value interface {
	Descriptor() Descriptor
	Bytes() []byte
}

var (
	_ Value = Fr{}
	_ Value = Fq{}
	_ Value = Point{}
	_ Value = Buffer32{}
	_ Value = Buffer128{}
	_ Value = Buffer(nil)
)
