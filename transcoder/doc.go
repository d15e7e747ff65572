// Package transcoder converts typed arguments into the byte regions a native
// module reads, and the byte regions it writes back into typed results.
//
// # Wire Format
//
// Values are packed left to right with no padding or alignment:
//
//	Descriptor      Encoding
//	───────────────────────────────────────────────────────────
//	fr, fq          32 bytes big-endian
//	point           64 bytes, X || Y
//	buffer32        32 raw bytes
//	buffer128       128 raw bytes
//	bool            1 byte, nonzero is true
//	number          4 bytes big-endian
//	buffer          4-byte big-endian length, then the bytes
//	sequence<T>     4-byte big-endian count, then each element's encoding
//
// A top-level number argument is not placed in memory at all: it is passed
// by value as an i32 parameter.
//
// # Key Types
//
//	Encoder         - Checks arguments against descriptors and encodes them
//	Decoder         - Decodes a Source positionally into typed values
//	Source          - Read-only view of result bytes (slice or module memory)
//	AllocationList  - Tracks module allocations made for one call
//
// Encoding is pure and decoding never writes to its Source.
package transcoder
