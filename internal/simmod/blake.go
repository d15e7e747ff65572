package simmod

import (
	"context"

	"golang.org/x/crypto/blake2s"

	"github.com/wippyai/crypto-bridge/types"
)

// blake2sExport: (data *buffer, out *Buffer32)
func blake2sExport(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	data, err := m.ReadBuffer(addr(params[0]))
	if err != nil {
		return nil, err
	}
	sum := blake2s.Sum256(data)
	return nil, m.WriteFixed(addr(params[1]), sum[:])
}

// blake2sToField: (data *buffer, out *Fr)
func blake2sToField(_ context.Context, m *Module, params []uint64) ([]uint64, error) {
	if err := m.arity(params, 2); err != nil {
		return nil, err
	}
	data, err := m.ReadBuffer(addr(params[0]))
	if err != nil {
		return nil, err
	}
	sum := blake2s.Sum256(data)
	out := types.ReduceFr(sum[:])
	return nil, m.WriteFixed(addr(params[1]), out[:])
}
