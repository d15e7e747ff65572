package simmod

import (
	"context"
	"encoding/binary"

	"github.com/minio/sha256-simd"

	"github.com/wippyai/crypto-bridge/types"
)

// digest is the Pedersen stand-in: SHA-256 over a domain tag, a hash index
// and the inputs, reduced into Fr.
func digest(tag string, index uint32, inputs ...[]byte) types.Fr {
	h := sha256.New()
	h.Write([]byte("pedersen/" + tag))
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	h.Write(idx[:])
	for _, in := range inputs {
		h.Write(in)
	}
	return types.ReduceFr(h.Sum(nil))
}

func noop(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	return nil, m.arity(params, 0)
}

// pairExport: (lhs *Fr, rhs *Fr, out *Fr)
func pairExport(tag string) Func {
	return func(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
		if err := m.arity(params, 3); err != nil {
			return nil, err
		}
		lhs, err := m.ReadFixed(addr(params[0]), types.FieldSize)
		if err != nil {
			return nil, err
		}
		rhs, err := m.ReadFixed(addr(params[1]), types.FieldSize)
		if err != nil {
			return nil, err
		}
		out := digest(tag, 0, lhs, rhs)
		return nil, m.WriteFixed(addr(params[2]), out[:])
	}
}

// vectorExport: (inputs *vector<Fr>, [hash_index i32,] out *Fr)
func vectorExport(tag string, withIndex bool) Func {
	n := 2
	if withIndex {
		n = 3
	}
	return func(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
		if err := m.arity(params, n); err != nil {
			return nil, err
		}
		elems, err := m.ReadVector(addr(params[0]), types.FieldSize)
		if err != nil {
			return nil, err
		}
		var index uint32
		if withIndex {
			index = uint32(params[1])
		}
		out := digest(tag, index, elems...)
		return nil, m.WriteFixed(addr(params[n-1]), out[:])
	}
}

// hashToTree: (leaves *vector<Fr>, out **vector<Fr>)
// The result holds every node, leaves first and the root last. The leaf count
// is padded with zeros to a power of two.
func hashToTree(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	leaves, err := m.ReadVector(addr(params[0]), types.FieldSize)
	if err != nil {
		return nil, err
	}

	width := 1
	for width < len(leaves) {
		width *= 2
	}
	nodes := make([][]byte, 0, 2*width)
	level := make([][]byte, width)
	for i := range level {
		if i < len(leaves) {
			level[i] = leaves[i]
		} else {
			level[i] = make([]byte, types.FieldSize)
		}
	}
	nodes = append(nodes, level...)
	for len(level) > 1 {
		next := make([][]byte, len(level)/2)
		for i := range next {
			h := digest("hash", 0, level[2*i], level[2*i+1])
			next[i] = h[:]
		}
		nodes = append(nodes, next...)
		level = next
	}
	return nil, m.ReturnVector(addr(params[1]), nodes)
}

// bufferToField: (data *buffer, out *Fr)
func bufferToField(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	data, err := m.ReadBuffer(addr(params[0]))
	if err != nil {
		return nil, err
	}
	out := digest("buffer_to_field", 0, data)
	return nil, m.WriteFixed(addr(params[1]), out[:])
}
