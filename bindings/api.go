package bindings

import (
	"context"

	"github.com/wippyai/crypto-bridge/dispatch"
	"github.com/wippyai/crypto-bridge/errors"
	"github.com/wippyai/crypto-bridge/types"
)

// API is the typed call surface of one module instance.
// It inherits the dispatcher's lack of thread safety.
type API struct {
	d *dispatch.Dispatcher
}

// New binds the API to a dispatcher
func New(d *dispatch.Dispatcher) *API {
	return &API{d: d}
}

// Call invokes a listed export with untyped arguments
func (a *API) Call(ctx context.Context, name string, args ...any) ([]any, error) {
	e, ok := Lookup(name)
	if !ok {
		return nil, errors.Dispatch(name, "export not in bindings table", nil)
	}
	return a.d.Call(ctx, e.Name, e.In, args, e.Out)
}

func (a *API) fr(ctx context.Context, name string, args ...any) (types.Fr, error) {
	out, err := a.Call(ctx, name, args...)
	if err != nil {
		return types.Fr{}, err
	}
	return out[0].(types.Fr), nil
}

func (a *API) point(ctx context.Context, name string, args ...any) (types.Point, error) {
	out, err := a.Call(ctx, name, args...)
	if err != nil {
		return types.Point{}, err
	}
	return out[0].(types.Point), nil
}

// PedersenInit initialises the Pedersen generators.
func (a *API) PedersenInit(ctx context.Context) error {
	_, err := a.Call(ctx, "pedersen_init")
	return err
}

// PedersenCompressFields compresses two field elements.
func (a *API) PedersenCompressFields(ctx context.Context, left, right types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_compress_fields", left, right)
}

// PedersenPlookupCompressFields compresses two field elements using lookup tables.
func (a *API) PedersenPlookupCompressFields(ctx context.Context, left, right types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_plookup_compress_fields", left, right)
}

// PedersenCompress compresses a vector of field elements.
func (a *API) PedersenCompress(ctx context.Context, inputs []types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_compress", inputs)
}

// PedersenPlookupCompress compresses a vector using lookup tables.
func (a *API) PedersenPlookupCompress(ctx context.Context, inputs []types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_plookup_compress", inputs)
}

// PedersenCompressWithHashIndex compresses a vector with generators offset by hashIndex.
func (a *API) PedersenCompressWithHashIndex(ctx context.Context, inputs []types.Fr, hashIndex uint32) (types.Fr, error) {
	return a.fr(ctx, "pedersen_compress_with_hash_index", inputs, hashIndex)
}

// PedersenCommit commits to a vector of field elements.
func (a *API) PedersenCommit(ctx context.Context, inputs []types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_commit", inputs)
}

// PedersenPlookupCommit commits to a vector using lookup tables.
func (a *API) PedersenPlookupCommit(ctx context.Context, inputs []types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_plookup_commit", inputs)
}

// PedersenBufferToField hashes a byte buffer into a field element.
func (a *API) PedersenBufferToField(ctx context.Context, data types.Buffer) (types.Fr, error) {
	return a.fr(ctx, "pedersen_buffer_to_field", data)
}

// PedersenHashInit initialises the Pedersen hash generators.
func (a *API) PedersenHashInit(ctx context.Context) error {
	_, err := a.Call(ctx, "pedersen_hash_init")
	return err
}

// PedersenHashPair hashes two field elements.
func (a *API) PedersenHashPair(ctx context.Context, left, right types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_hash_pair", left, right)
}

// PedersenHashMultiple hashes a vector of field elements.
func (a *API) PedersenHashMultiple(ctx context.Context, inputs []types.Fr) (types.Fr, error) {
	return a.fr(ctx, "pedersen_hash_multiple", inputs)
}

// PedersenHashMultipleWithHashIndex hashes a vector with generators offset by hashIndex.
func (a *API) PedersenHashMultipleWithHashIndex(ctx context.Context, inputs []types.Fr, hashIndex uint32) (types.Fr, error) {
	return a.fr(ctx, "pedersen_hash_multiple_with_hash_index", inputs, hashIndex)
}

// PedersenHashToTree returns every node of the tree over data, leaves first
func (a *API) PedersenHashToTree(ctx context.Context, data []types.Fr) ([]types.Fr, error) {
	out, err := a.Call(ctx, "pedersen_hash_to_tree", data)
	if err != nil {
		return nil, err
	}
	return out[0].([]types.Fr), nil
}

// Blake2s returns the Blake2s digest of data.
func (a *API) Blake2s(ctx context.Context, data types.Buffer) (types.Buffer32, error) {
	out, err := a.Call(ctx, "blake2s", data)
	if err != nil {
		return types.Buffer32{}, err
	}
	return out[0].(types.Buffer32), nil
}

// Blake2sToField returns the Blake2s digest of data reduced into the field.
func (a *API) Blake2sToField(ctx context.Context, data types.Buffer) (types.Fr, error) {
	return a.fr(ctx, "blake2s_to_field", data)
}

// SchnorrComputePublicKey derives the public key of privateKey.
func (a *API) SchnorrComputePublicKey(ctx context.Context, privateKey types.Fr) (types.Point, error) {
	return a.point(ctx, "schnorr_compute_public_key", privateKey)
}

// SchnorrNegatePublicKey negates a public key.
func (a *API) SchnorrNegatePublicKey(ctx context.Context, publicKey types.Point) (types.Point, error) {
	return a.point(ctx, "schnorr_negate_public_key", publicKey)
}

// SchnorrConstructSignature returns the signature halves (s, e)
func (a *API) SchnorrConstructSignature(ctx context.Context, message types.Buffer, privateKey types.Fr) (types.Buffer32, types.Buffer32, error) {
	out, err := a.Call(ctx, "schnorr_construct_signature", message, privateKey)
	if err != nil {
		return types.Buffer32{}, types.Buffer32{}, err
	}
	return out[0].(types.Buffer32), out[1].(types.Buffer32), nil
}

// SchnorrVerifySignature reports whether (sigS, sigE) signs message under publicKey.
func (a *API) SchnorrVerifySignature(ctx context.Context, message types.Buffer, publicKey types.Point, sigS, sigE types.Buffer32) (bool, error) {
	out, err := a.Call(ctx, "schnorr_verify_signature", message, publicKey, sigS, sigE)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// SchnorrMultisigCreateMultisigPublicKey creates a signer key with its proof of possession.
func (a *API) SchnorrMultisigCreateMultisigPublicKey(ctx context.Context, privateKey types.Fq) (types.Buffer128, error) {
	out, err := a.Call(ctx, "schnorr_multisig_create_multisig_public_key", privateKey)
	if err != nil {
		return types.Buffer128{}, err
	}
	return out[0].(types.Buffer128), nil
}

// SchnorrMultisigValidateAndCombineSignerPubkeys returns the combined key and
// whether every signer key was valid
func (a *API) SchnorrMultisigValidateAndCombineSignerPubkeys(ctx context.Context, signerPubkeys []types.Buffer128) (types.Point, bool, error) {
	out, err := a.Call(ctx, "schnorr_multisig_validate_and_combine_signer_pubkeys", signerPubkeys)
	if err != nil {
		return types.Point{}, false, err
	}
	return out[0].(types.Point), out[1].(bool), nil
}

// SchnorrMultisigConstructSignatureRound1 returns the (public, private) nonce pair
func (a *API) SchnorrMultisigConstructSignatureRound1(ctx context.Context) (types.Buffer128, types.Buffer128, error) {
	out, err := a.Call(ctx, "schnorr_multisig_construct_signature_round_1")
	if err != nil {
		return types.Buffer128{}, types.Buffer128{}, err
	}
	return out[0].(types.Buffer128), out[1].(types.Buffer128), nil
}

// SchnorrMultisigConstructSignatureRound2 produces this signer's round two share and whether the inputs were valid.
func (a *API) SchnorrMultisigConstructSignatureRound2(ctx context.Context, message types.Buffer, privateKey types.Fq, roundOnePrivate types.Buffer128, signerPubkeys, roundOnePublic []types.Buffer128) (types.Fq, bool, error) {
	out, err := a.Call(ctx, "schnorr_multisig_construct_signature_round_2", message, privateKey, roundOnePrivate, signerPubkeys, roundOnePublic)
	if err != nil {
		return types.Fq{}, false, err
	}
	return out[0].(types.Fq), out[1].(bool), nil
}

// SchnorrMultisigCombineSignatures combines round two shares into (s, e) and reports whether combining succeeded.
func (a *API) SchnorrMultisigCombineSignatures(ctx context.Context, message types.Buffer, signerPubkeys, roundOne []types.Buffer128, roundTwo []types.Fr) (types.Buffer32, types.Buffer32, bool, error) {
	out, err := a.Call(ctx, "schnorr_multisig_combine_signatures", message, signerPubkeys, roundOne, roundTwo)
	if err != nil {
		return types.Buffer32{}, types.Buffer32{}, false, err
	}
	return out[0].(types.Buffer32), out[1].(types.Buffer32), out[2].(bool), nil
}
