// Package errors provides structured error types for the crypto bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the export name, value path, Go type and descriptor names,
// and the cause chain.
//
// The four kinds a caller of the bridge must distinguish are:
//
//	KindInvalidLength     wrong byte count for a fixed-width value (caller fault)
//	KindTypeMismatch      argument does not match its descriptor (caller fault)
//	KindDispatchFailure   the native call failed: missing export, trap, allocation
//	KindTruncatedResult   result bytes ran out before every output was decoded
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Export("pedersen_compress").
//		Path("arg[0]", "[2]").
//		GoType("types.Fq").
//		Descriptor("fr").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidLength(errors.PhaseConstruct, "fr", 32, 31)
//	err := errors.Truncated(path, "buffer32", 32, 31)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
