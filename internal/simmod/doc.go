// Package simmod is a native module implemented in Go.
//
// It honors the same contract as a compiled module loaded through the engine:
// an isolated byte-slice linear memory, a module-side allocator, and named
// exports that take and return raw i32 values. Exports read their inputs from
// memory and write their outputs following the out-pointer convention.
//
// The standard exports are stand-ins. Blake2s is real. The Pedersen family is a
// deterministic SHA-256 construction reduced into Fr, and Schnorr signing uses
// BIP-340 over secp256k1. Outputs are therefore not interchangeable with the
// real module, but every argument and result travels exactly as it would.
package simmod
