package types

import "strings"

// Kind is the tag of a Descriptor
type Kind uint8

const (
	KindFr Kind = iota
	KindFq
	KindPoint
	KindBuffer32
	KindBuffer128
	KindBool
	KindNumber
	KindBuffer
	KindSequence
)

var kindNames = [...]string{
	KindFr:        "fr",
	KindFq:        "fq",
	KindPoint:     "point",
	KindBuffer32:  "buffer32",
	KindBuffer128: "buffer128",
	KindBool:      "bool",
	KindNumber:    "number",
	KindBuffer:    "buffer",
	KindSequence:  "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Wire widths in bytes
const (
	FieldSize     = 32
	PointSize     = 2 * FieldSize
	Buffer32Size  = 32
	Buffer128Size = 128
	BoolSize      = 1
	NumberSize    = 4
	PrefixSize    = 4 // length or count prefix
)

// Descriptor names the wire layout of one argument or result.
// The zero value describes an Fr.
type Descriptor struct {
	elem *Descriptor
	kind Kind
}

var (
	FrType        = Descriptor{kind: KindFr}
	FqType        = Descriptor{kind: KindFq}
	PointType     = Descriptor{kind: KindPoint}
	Buffer32Type  = Descriptor{kind: KindBuffer32}
	Buffer128Type = Descriptor{kind: KindBuffer128}
	BoolType      = Descriptor{kind: KindBool}
	NumberType    = Descriptor{kind: KindNumber}
	BufferType    = Descriptor{kind: KindBuffer}
)

// SequenceOf describes a count-prefixed sequence of elem
func SequenceOf(elem Descriptor) Descriptor {
	e := elem
	return Descriptor{kind: KindSequence, elem: &e}
}

// Kind returns the descriptor's tag
func (d Descriptor) Kind() Kind { return d.kind }

// Elem returns the element descriptor of a sequence
func (d Descriptor) Elem() (Descriptor, bool) {
	if d.kind != KindSequence || d.elem == nil {
		return Descriptor{}, false
	}
	return *d.elem, true
}

// FixedWidth returns the encoded size for fixed-width descriptors.
// Buffers and sequences are variable and report false.
func (d Descriptor) FixedWidth() (uint32, bool) {
	switch d.kind {
	case KindFr, KindFq, KindBuffer32:
		return FieldSize, true
	case KindPoint:
		return PointSize, true
	case KindBuffer128:
		return Buffer128Size, true
	case KindBool:
		return BoolSize, true
	case KindNumber:
		return NumberSize, true
	default:
		return 0, false
	}
}

// IsVariable reports whether the encoding carries a length or count prefix
func (d Descriptor) IsVariable() bool {
	_, fixed := d.FixedWidth()
	return !fixed
}

// Equal reports structural equality
func (d Descriptor) Equal(o Descriptor) bool {
	if d.kind != o.kind {
		return false
	}
	if d.kind != KindSequence {
		return true
	}
	de, _ := d.Elem()
	oe, _ := o.Elem()
	return de.Equal(oe)
}

func (d Descriptor) String() string {
	if d.kind == KindSequence {
		e, _ := d.Elem()
		return "sequence<" + e.String() + ">"
	}
	return d.kind.String()
}

// FormatList renders descriptors as a comma separated list
func FormatList(ds []Descriptor) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
