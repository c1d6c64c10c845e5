package wire

import (
	"bytes"
	"strings"
)

// Buffer accumulates raw bytes and yields complete frames.  Bytes after
// the last terminator stay buffered until more data arrives.  Buffer is
// not safe for concurrent use.
type Buffer struct {
	buf []byte
}

// Write appends p to the buffer.  It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Next removes and returns the text before the first terminator.
// Invalid UTF-8 is replaced with U+FFFD.  ok is false when no complete
// frame is buffered.
func (b *Buffer) Next() (frame string, ok bool) {
	i := bytes.IndexByte(b.buf, Terminator)
	if i < 0 {
		return "", false
	}
	frame = strings.ToValidUTF8(string(b.buf[:i]), "�")

	rest := len(b.buf) - i - 1
	copy(b.buf, b.buf[i+1:])
	b.buf = b.buf[:rest]
	if rest == 0 && cap(b.buf) > 64*1024 {
		b.buf = nil
	}
	return frame, true
}

// Len returns the number of buffered bytes not yet returned by Next.
func (b *Buffer) Len() int { return len(b.buf) }
