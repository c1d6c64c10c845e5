package util

import "sync"

// DefaultBufSize is the size of a single network read chunk (4 KiB).
const DefaultBufSize = 4 * 1024

// BufPool provides reusable read buffers for the per-connection
// lifecycle loops, so a server with many idle clients does not keep one
// allocation per poll.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
