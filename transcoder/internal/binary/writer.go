package binary

import (
	"encoding/binary"
	"math"
)

// Writer appends Avro binary encodings to a byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer that appends to buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Cap returns the capacity of the underlying buffer.
func (w *Writer) Cap() int { return cap(w.buf) }

// Reset truncates the buffer, keeping its capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Truncate discards everything written after the first n bytes.
func (w *Writer) Truncate(n int) { w.buf = w.buf[:n] }

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteLong appends v as a zigzag varint.
func (w *Writer) WriteLong(v int64) {
	w.buf = AppendLong(w.buf, v)
}

// WriteBool appends 0x01 or 0x00.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

// WriteFloat appends v as 4 little-endian bytes.
func (w *Writer) WriteFloat(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// WriteDouble appends v as 8 little-endian bytes.
func (w *Writer) WriteDouble(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

// WriteBytes appends a length prefix followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = AppendLong(w.buf, int64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteFixed appends b with no length prefix.
func (w *Writer) WriteFixed(b []byte) {
	w.buf = append(w.buf, b...)
}

// Zigzag maps a signed integer so that small magnitudes get small encodings.
func Zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// AppendLong appends the zigzag varint encoding of v to buf.
func AppendLong(buf []byte, v int64) []byte {
	u := Zigzag(v)
	for u >= 0x80 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}
