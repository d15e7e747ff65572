package transcoder

import "sync"

const (
	// Pool limits to prevent memory bloat
	poolMaxCapBytes  = 64 * 1024
	poolInitCapBytes = 256
)

var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, poolInitCapBytes)
		return &buf
	},
}

func getBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

func putBuf(buf *[]byte) {
	if buf == nil || cap(*buf) > poolMaxCapBytes {
		return // reject oversized
	}
	*buf = (*buf)[:0]
	bufPool.Put(buf)
}
