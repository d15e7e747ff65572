package simmod

import (
	"encoding/binary"
)

// Module-side helpers exports use to read inputs and write outputs.

func (m *Module) arity(params []uint64, n int) error {
	if len(params) != n {
		return m.Trap("expected %d params, got %d", n, len(params))
	}
	return nil
}

// ReadFixed copies n bytes at ptr
func (m *Module) ReadFixed(ptr, n uint32) ([]byte, error) {
	b, err := m.mem.Read(ptr, n)
	if err != nil {
		return nil, m.Trap("read %d bytes at %d: %v", n, ptr, err)
	}
	return append([]byte(nil), b...), nil
}

// ReadBuffer reads a big-endian length-prefixed buffer at ptr
func (m *Module) ReadBuffer(ptr uint32) ([]byte, error) {
	hdr, err := m.ReadFixed(ptr, 4)
	if err != nil {
		return nil, err
	}
	return m.ReadFixed(ptr+4, binary.BigEndian.Uint32(hdr))
}

// ReadVector reads a big-endian count-prefixed vector of fixed-width elements
func (m *Module) ReadVector(ptr, width uint32) ([][]byte, error) {
	hdr, err := m.ReadFixed(ptr, 4)
	if err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr)
	if uint64(n)*uint64(width) > uint64(m.mem.Size()) {
		return nil, m.Trap("vector of %d elements does not fit in memory", n)
	}
	body, err := m.ReadFixed(ptr+4, n*width)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := range out {
		out[i] = body[uint32(i)*width : uint32(i+1)*width]
	}
	return out, nil
}

// WriteFixed writes b at ptr
func (m *Module) WriteFixed(ptr uint32, b []byte) error {
	if err := m.mem.Write(ptr, b); err != nil {
		return m.Trap("write %d bytes at %d: %v", len(b), ptr, err)
	}
	return nil
}

// WriteBool writes a one-byte boolean at ptr
func (m *Module) WriteBool(ptr uint32, v bool) error {
	if v {
		return m.WriteFixed(ptr, []byte{1})
	}
	return m.WriteFixed(ptr, []byte{0})
}

// ReturnVector allocates a count-prefixed vector in module memory and stores
// its pointer in the 4-byte slot at slot. The caller frees it.
func (m *Module) ReturnVector(slot uint32, elems [][]byte) error {
	size := 4
	for _, e := range elems {
		size += len(e)
	}
	payload := make([]byte, 4, size)
	binary.BigEndian.PutUint32(payload, uint32(len(elems)))
	for _, e := range elems {
		payload = append(payload, e...)
	}
	return m.returnPayload(slot, payload)
}

// ReturnBuffer allocates a length-prefixed buffer and stores its pointer at slot
func (m *Module) ReturnBuffer(slot uint32, data []byte) error {
	payload := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(payload, uint32(len(data)))
	return m.returnPayload(slot, append(payload, data...))
}

func (m *Module) returnPayload(slot uint32, payload []byte) error {
	ptr, err := m.heap.Alloc(uint32(len(payload)))
	if err != nil {
		return m.Trap("allocate result: %v", err)
	}
	if err := m.WriteFixed(ptr, payload); err != nil {
		return err
	}
	if err := m.mem.WriteU32(slot, ptr); err != nil {
		return m.Trap("store result pointer at %d: %v", slot, err)
	}
	return nil
}

func addr(v uint64) uint32 { return uint32(v) }
