package transcoder

// Source is a read-only view of result bytes
type Source interface {
	// ReadAt returns n bytes at offset, or false if the range is not readable.
	// The returned slice may alias the underlying storage.
	ReadAt(offset, n uint32) ([]byte, bool)
	Len() uint32
}

// BytesSource serves reads from a byte slice
type BytesSource []byte

func (s BytesSource) ReadAt(offset, n uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(n)
	if end > uint64(len(s)) {
		return nil, false
	}
	return s[offset:end], true
}

func (s BytesSource) Len() uint32 { return uint32(len(s)) }

// MemorySource serves reads from module linear memory
type MemorySource struct {
	Mem Memory
}

func (s MemorySource) ReadAt(offset, n uint32) ([]byte, bool) {
	b, err := s.Mem.Read(offset, n)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (s MemorySource) Len() uint32 { return s.Mem.Size() }
