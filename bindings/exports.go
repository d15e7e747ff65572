// Package bindings exposes one typed method per export of the native crypto
// module. Each method is a thin call through the dispatcher with the export's
// argument and result descriptors taken from the Exports table.
package bindings

import "github.com/wippyai/crypto-bridge/types"

// Export describes one native export
type Export struct {
	Name    string
	Params  []string
	In      []types.Descriptor
	Out     []types.Descriptor
	Summary string
}

var (
	fr        = types.FrType
	fq        = types.FqType
	point     = types.PointType
	buf32     = types.Buffer32Type
	buf128    = types.Buffer128Type
	boolean   = types.BoolType
	number    = types.NumberType
	buffer    = types.BufferType
	frs       = types.SequenceOf(types.FrType)
	buf128s   = types.SequenceOf(types.Buffer128Type)
	nothing   = []types.Descriptor{}
	oneFr     = []types.Descriptor{fr}
	onePoint  = []types.Descriptor{point}
	frPair    = []types.Descriptor{fr, fr}
	frVector  = []types.Descriptor{frs}
	withIndex = []types.Descriptor{frs, number}
)

// Exports lists every export the bindings call, in declaration order
var Exports = []Export{
	{"pedersen_init", nil, nothing, nothing, "Initialise Pedersen generators."},
	{"pedersen_compress_fields", []string{"left", "right"}, frPair, oneFr, "Compress two field elements."},
	{"pedersen_plookup_compress_fields", []string{"left", "right"}, frPair, oneFr, "Compress two field elements using lookup tables."},
	{"pedersen_compress", []string{"inputs"}, frVector, oneFr, "Compress a vector of field elements."},
	{"pedersen_plookup_compress", []string{"inputs"}, frVector, oneFr, "Compress a vector using lookup tables."},
	{"pedersen_compress_with_hash_index", []string{"inputs", "hash_index"}, withIndex, oneFr, "Compress with a generator offset."},
	{"pedersen_commit", []string{"inputs"}, frVector, oneFr, "Commit to a vector of field elements."},
	{"pedersen_plookup_commit", []string{"inputs"}, frVector, oneFr, "Commit using lookup tables."},
	{"pedersen_buffer_to_field", []string{"data"}, []types.Descriptor{buffer}, oneFr, "Hash a byte buffer into a field element."},
	{"pedersen_hash_init", nil, nothing, nothing, "Initialise Pedersen hash generators."},
	{"pedersen_hash_pair", []string{"left", "right"}, frPair, oneFr, "Hash two field elements."},
	{"pedersen_hash_multiple", []string{"inputs"}, frVector, oneFr, "Hash a vector of field elements."},
	{"pedersen_hash_multiple_with_hash_index", []string{"inputs", "hash_index"}, withIndex, oneFr, "Hash a vector with a generator offset."},
	{"pedersen_hash_to_tree", []string{"data"}, frVector, []types.Descriptor{frs}, "Build a Merkle tree and return every node."},
	{"blake2s", []string{"data"}, []types.Descriptor{buffer}, []types.Descriptor{buf32}, "Blake2s digest."},
	{"blake2s_to_field", []string{"data"}, []types.Descriptor{buffer}, oneFr, "Blake2s digest reduced into the field."},
	{"schnorr_compute_public_key", []string{"private_key"}, oneFr, onePoint, "Derive a Schnorr public key."},
	{"schnorr_negate_public_key", []string{"public_key"}, onePoint, onePoint, "Negate a public key."},
	{"schnorr_construct_signature", []string{"message", "private_key"}, []types.Descriptor{buffer, fr}, []types.Descriptor{buf32, buf32}, "Sign a message, returning (s, e)."},
	{"schnorr_verify_signature", []string{"message", "public_key", "sig_s", "sig_e"}, []types.Descriptor{buffer, point, buf32, buf32}, []types.Descriptor{boolean}, "Verify a Schnorr signature."},
	{"schnorr_multisig_create_multisig_public_key", []string{"private_key"}, []types.Descriptor{fq}, []types.Descriptor{buf128}, "Create a multisig key with proof of possession."},
	{"schnorr_multisig_validate_and_combine_signer_pubkeys", []string{"signer_pubkeys"}, []types.Descriptor{buf128s}, []types.Descriptor{point, boolean}, "Validate signer keys and combine them."},
	{"schnorr_multisig_construct_signature_round_1", nil, nothing, []types.Descriptor{buf128, buf128}, "Produce round one (public, private) nonces."},
	{"schnorr_multisig_construct_signature_round_2", []string{"message", "private_key", "round_one_private", "signer_pubkeys", "round_one_public"}, []types.Descriptor{buffer, fq, buf128, buf128s, buf128s}, []types.Descriptor{fq, boolean}, "Produce this signer's round two share."},
	{"schnorr_multisig_combine_signatures", []string{"message", "signer_pubkeys", "round_one", "round_two"}, []types.Descriptor{buffer, buf128s, buf128s, frs}, []types.Descriptor{buf32, buf32, boolean}, "Combine round two shares into (s, e)."},
}

var exportsByName = func() map[string]Export {
	m := make(map[string]Export, len(Exports))
	for _, e := range Exports {
		m[e.Name] = e
	}
	return m
}()

// Lookup finds an export by name
func Lookup(name string) (Export, bool) {
	e, ok := exportsByName[name]
	return e, ok
}

// Signature renders the export in WIT function notation
func (e Export) Signature() string {
	s := e.Name + ": func("
	for i, d := range e.In {
		if i > 0 {
			s += ", "
		}
		name := "arg" + string(rune('0'+i))
		if i < len(e.Params) {
			name = e.Params[i]
		}
		s += name + ": " + types.WITString(d.WITType())
	}
	s += ")"
	if r := types.ResultWITType(e.Out); r != nil {
		s += " -> " + types.WITString(r)
	}
	return s
}
