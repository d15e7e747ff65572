package simmod

// Standard export names
const (
	PedersenInit                   = "pedersen_init"
	PedersenCompressFields         = "pedersen_compress_fields"
	PedersenPlookupCompressFields  = "pedersen_plookup_compress_fields"
	PedersenCompress               = "pedersen_compress"
	PedersenPlookupCompress        = "pedersen_plookup_compress"
	PedersenCompressWithHashIndex  = "pedersen_compress_with_hash_index"
	PedersenCommit                 = "pedersen_commit"
	PedersenPlookupCommit          = "pedersen_plookup_commit"
	PedersenBufferToField          = "pedersen_buffer_to_field"
	PedersenHashInit               = "pedersen_hash_init"
	PedersenHashPair               = "pedersen_hash_pair"
	PedersenHashMultiple           = "pedersen_hash_multiple"
	PedersenHashMultipleWithIndex  = "pedersen_hash_multiple_with_hash_index"
	PedersenHashToTree             = "pedersen_hash_to_tree"
	Blake2s                        = "blake2s"
	Blake2sToField                 = "blake2s_to_field"
	SchnorrComputePublicKey        = "schnorr_compute_public_key"
	SchnorrNegatePublicKey         = "schnorr_negate_public_key"
	SchnorrConstructSignature      = "schnorr_construct_signature"
	SchnorrVerifySignature         = "schnorr_verify_signature"
	MultisigCreatePublicKey        = "schnorr_multisig_create_multisig_public_key"
	MultisigValidateAndCombineKeys = "schnorr_multisig_validate_and_combine_signer_pubkeys"
)

func registerStandard(m *Module) {
	m.Register(PedersenInit, noop)
	m.Register(PedersenHashInit, noop)

	m.Register(PedersenCompressFields, pairExport("compress"))
	m.Register(PedersenPlookupCompressFields, pairExport("plookup_compress"))
	m.Register(PedersenHashPair, pairExport("hash"))

	m.Register(PedersenCompress, vectorExport("compress", false))
	m.Register(PedersenPlookupCompress, vectorExport("plookup_compress", false))
	m.Register(PedersenCompressWithHashIndex, vectorExport("compress", true))
	m.Register(PedersenCommit, vectorExport("commit", false))
	m.Register(PedersenPlookupCommit, vectorExport("plookup_commit", false))
	m.Register(PedersenHashMultiple, vectorExport("hash", false))
	m.Register(PedersenHashMultipleWithIndex, vectorExport("hash", true))
	m.Register(PedersenHashToTree, hashToTree)
	m.Register(PedersenBufferToField, bufferToField)

	m.Register(Blake2s, blake2sExport)
	m.Register(Blake2sToField, blake2sToField)

	m.Register(SchnorrComputePublicKey, computePublicKey)
	m.Register(SchnorrNegatePublicKey, negatePublicKey)
	m.Register(SchnorrConstructSignature, constructSignature)
	m.Register(SchnorrVerifySignature, verifySignature)
	m.Register(MultisigCreatePublicKey, createMultisigPublicKey)
	m.Register(MultisigValidateAndCombineKeys, validateAndCombine)
}
