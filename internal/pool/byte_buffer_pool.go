// Package pool provides a reusable byte buffer pool for the compression and
// encryption pipelines, which otherwise allocate a fresh scratch buffer per
// entry. Same growth strategy as a fixed-size blob buffer pool, sized for
// archive payloads (single-entry compression output, one frame of
// framed-mode input) rather than columnar metric blobs.
package pool

import (
	"io"
	"sync"
)

// Default and maximum retained sizes for the package-level pools.
const (
	PayloadBufferDefaultSize  = 1024 * 32        // 32KiB: typical entry payload
	PayloadBufferMaxThreshold = 1024 * 1024 * 4  // 4MiB: discard larger buffers on Put
	FrameBufferDefaultSize    = 1024 * 64        // 64KiB: exactly one frame
	FrameBufferMaxThreshold   = 1024 * 256
)

// ByteBuffer is a growable byte slice wrapper that retains its backing array
// across Reset calls, so a pooled instance amortizes allocation across many
// entries.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with defaultSize bytes of capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the buffer's current contents.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Len returns the number of bytes currently held.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Reset empties the buffer while retaining its backing array.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Grow ensures the buffer can accept requiredBytes more bytes without a
// reallocation.
//
// Growth strategy: buffers under 4x the default size grow by a fixed step to
// minimize reallocations early on; larger buffers grow by 25% of current
// capacity to balance memory use against reallocation cost.
func (bb *ByteBuffer) Grow(requiredBytes int) {
	available := cap(bb.B) - len(bb.B)
	if available >= requiredBytes {
		return
	}

	growBy := PayloadBufferDefaultSize
	if cap(bb.B) > 4*PayloadBufferDefaultSize {
		growBy = cap(bb.B) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(bb.B), len(bb.B)+growBy)
	copy(newBuf, bb.B)
	bb.B = newBuf
}

// Write appends data to the buffer, growing it as needed. It implements
// io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// MustWrite appends data to the buffer, growing it as needed. It is Write
// without the return values, since appending to a ByteBuffer cannot fail.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.Grow(len(data))
	bb.B = append(bb.B, data...)
}

// WriteTo writes the buffer's contents to w. It implements io.WriterTo.
func (bb *ByteBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(bb.B)
	return int64(n), err
}

// BufferPool is a sync.Pool of ByteBuffers with an upper bound on the size
// of buffer it will retain, so one oversized entry doesn't pin a permanently
// large buffer in the pool.
type BufferPool struct {
	pool         sync.Pool
	maxThreshold int
}

// NewBufferPool creates a BufferPool whose buffers start at defaultSize and
// are discarded on Put once they exceed maxThreshold bytes of capacity.
func NewBufferPool(defaultSize, maxThreshold int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool, allocating a new one if empty.
func (p *BufferPool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool for reuse, discarding it if it has grown past
// the pool's maxThreshold.
func (p *BufferPool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

var (
	payloadPool = NewBufferPool(PayloadBufferDefaultSize, PayloadBufferMaxThreshold)
	framePool   = NewBufferPool(FrameBufferDefaultSize, FrameBufferMaxThreshold)
)

// GetPayloadBuffer retrieves a ByteBuffer from the default entry-payload pool.
func GetPayloadBuffer() *ByteBuffer { return payloadPool.Get() }

// PutPayloadBuffer returns bb to the default entry-payload pool.
func PutPayloadBuffer(bb *ByteBuffer) { payloadPool.Put(bb) }

// GetFrameBuffer retrieves a ByteBuffer from the default framed-compression pool.
func GetFrameBuffer() *ByteBuffer { return framePool.Get() }

// PutFrameBuffer returns bb to the default framed-compression pool.
func PutFrameBuffer(bb *ByteBuffer) { framePool.Put(bb) }
