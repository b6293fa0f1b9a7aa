// Package pool reuses copy buffers across item transfers.
package pool

import (
	"sync"
)

// CopyBufferSize is the size of buffers handed out for streaming object
// bodies to local files (64KB).
const CopyBufferSize = 64 * 1024

// BufferPool hands out fixed-size copy buffers.
type BufferPool struct {
	pool *sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, CopyBufferSize)
				return &buf
			},
		},
	}
}

// Get returns a buffer with length CopyBufferSize.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	return (*bufPtr)[:CopyBufferSize]
}

// Put returns a buffer to the pool. Buffers of any other capacity are dropped.
// The buffer should not be used after calling Put.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != CopyBufferSize {
		return
	}
	buf = buf[:CopyBufferSize]
	bp.pool.Put(&buf)
}

// Global buffer pool instance shared by all downloads.
var globalBufferPool = NewBufferPool()

// GetCopyBuffer returns a copy buffer from the global pool.
func GetCopyBuffer() []byte {
	return globalBufferPool.Get()
}

// PutCopyBuffer returns a copy buffer to the global pool.
func PutCopyBuffer(buf []byte) {
	globalBufferPool.Put(buf)
}
