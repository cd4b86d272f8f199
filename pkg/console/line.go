package console

// DefaultLineCapacity is the capacity of the pending input line.
const DefaultLineCapacity = 32

// LineBuffer is a bounded, length-tracked token buffer.
type LineBuffer struct {
	buf []byte
}

// NewLineBuffer creates a LineBuffer holding at most capacity bytes.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = DefaultLineCapacity
	}
	return &LineBuffer{buf: make([]byte, 0, capacity)}
}

// Append adds a byte, ErrBufferOverflow if it doesn't fit.
func (b *LineBuffer) Append(c byte) error {
	if len(b.buf) == cap(b.buf) {
		return ErrBufferOverflow
	}
	b.buf = append(b.buf, c)
	return nil
}

// Len returns the pending length.
func (b *LineBuffer) Len() int {
	return len(b.buf)
}

// Cap returns the capacity.
func (b *LineBuffer) Cap() int {
	return cap(b.buf)
}

// Token returns the pending bytes as a string.
func (b *LineBuffer) Token() string {
	return string(b.buf)
}

// Reset empties the buffer.
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
}
