// Package dispatch implements the single primitive that crosses the boundary
// into a native module: encode, allocate, copy, invoke, read back, free.
//
// A call owns every block it allocates inside the module and every result
// buffer the module hands back. All of them are released before Call returns,
// whether the call succeeded, trapped, reported a failure status or produced
// undecodable results.
//
// # Return Conventions
//
// OutPointers (the default) follows the C binding convention of the native
// crypto module. After the input pointers, the export receives one pointer per
// output. Fixed-width outputs are written by the module directly into a
// host-allocated region. A variable output gets a 4-byte slot into which the
// module stores a pointer to a buffer it allocated, holding the count or
// length prefixed payload. An i32 return value, when present, is a status and
// nonzero means failure.
//
// ReturnPointer modules take only the inputs and return a single i32: the value
// itself for a lone bool or number output, otherwise a pointer to a packed
// output region the module allocated. A zero pointer means failure.
//
// The convention is fixed per Dispatcher.
//
// A Dispatcher is not safe for concurrent use.
package dispatch
