package types

import (
	"strings"

	"go.bytecodealliance.org/wit"
)

var witNames = [...]string{
	KindFr:        "fr",
	KindFq:        "fq",
	KindPoint:     "point",
	KindBuffer32:  "buffer32",
	KindBuffer128: "buffer128",
	KindBuffer:    "buffer",
}

// WITType maps a descriptor to its WIT counterpart. Byte-backed kinds become
// named list<u8> type definitions, bool and number map to bool and u32, and a
// sequence becomes list<T>.
func (d Descriptor) WITType() wit.Type {
	switch d.kind {
	case KindBool:
		return wit.Bool{}
	case KindNumber:
		return wit.U32{}
	case KindSequence:
		e, _ := d.Elem()
		return &wit.TypeDef{Kind: &wit.List{Type: e.WITType()}}
	default:
		name := witNames[d.kind]
		return &wit.TypeDef{Name: &name, Kind: &wit.List{Type: wit.U8{}}}
	}
}

// ResultWITType maps an output list to a single WIT result type.
// Nil means no result; several outputs become a tuple.
func ResultWITType(ds []Descriptor) wit.Type {
	switch len(ds) {
	case 0:
		return nil
	case 1:
		return ds[0].WITType()
	}
	types := make([]wit.Type, len(ds))
	for i, d := range ds {
		types[i] = d.WITType()
	}
	return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}
}

// WITString renders a WIT type in WIT notation
func WITString(t wit.Type) string {
	switch v := t.(type) {
	case nil:
		return ""
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.U32:
		return "u32"
	case *wit.TypeDef:
		if v.Name != nil {
			return *v.Name
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + WITString(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = WITString(e)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		}
		return "typedef"
	default:
		return "unknown"
	}
}
