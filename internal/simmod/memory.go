package simmod

import (
	"encoding/binary"

	"github.com/wippyai/crypto-bridge/errors"
)

// PageSize matches the wasm page size
const PageSize = 65536

// Memory is a growable byte-slice linear memory
type Memory struct {
	data     []byte
	maxPages uint32
}

func newMemory(pages, maxPages uint32) *Memory {
	return &Memory{data: make([]byte, pages*PageSize), maxPages: maxPages}
}

func (m *Memory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return errors.OutOfBounds(errors.PhaseRuntime, offset, length, uint32(len(m.data)))
	}
	return nil
}

// Read returns a view into memory, valid until the next Grow
func (m *Memory) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

// ReadU32 reads a little-endian i32, as wasm loads do
func (m *Memory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *Memory) WriteU32(offset, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// Grow adds pages and reports whether the limit allowed it
func (m *Memory) Grow(pages uint32) bool {
	cur := uint32(len(m.data) / PageSize)
	if cur+pages > m.maxPages {
		return false
	}
	m.data = append(m.data, make([]byte, pages*PageSize)...)
	return true
}
