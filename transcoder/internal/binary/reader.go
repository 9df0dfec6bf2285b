package binary

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/wippyai/avro-model/errors"
)

const maxVarintLen = 10

// MaxEmptyItems bounds the array and map items that consume no input over
// the lifetime of one Reader.
const MaxEmptyItems = 1 << 16

// Reader is a bounded cursor over an in-memory Avro payload. Every read
// checks the remaining length first; running off the end returns a
// truncated decode error, never a panic.
type Reader struct {
	buf   []byte
	pos   int
	empty int
}

// NewReader creates a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Reset repositions the reader over a new buffer.
func (r *Reader) Reset(buf []byte) {
	r.buf = buf
	r.pos = 0
	r.empty = 0
}

// Position returns the current byte offset.
func (r *Reader) Position() int { return r.pos }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Remaining returns the unread tail without consuming it.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errors.Truncated(errors.PhaseDecode, nil, 1, 0)
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// Next returns the next n bytes as a subslice of the underlying buffer.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "negative length")
	}
	if n > r.Len() {
		return nil, errors.Truncated(errors.PhaseDecode, nil, n, r.Len())
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadLong reads a zigzag-encoded base-128 varint.
func (r *Reader) ReadLong() (int64, error) {
	var u uint64
	var shift uint
	for i := 0; ; i++ {
		if i == maxVarintLen {
			return 0, errors.Overflow(errors.PhaseDecode, nil, "varint", "long")
		}
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == maxVarintLen-1 && b > 1 {
			return 0, errors.Overflow(errors.PhaseDecode, nil, "varint", "long")
		}
		u |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	return Unzigzag(u), nil
}

// ReadInt reads a varint and checks that it fits in 32 bits.
func (r *Reader) ReadInt() (int32, error) {
	v, err := r.ReadLong()
	if err != nil {
		return 0, err
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseDecode, nil, v, "int")
	}
	return int32(v), nil
}

// ReadBool reads one byte; only 0x00 and 0x01 are valid.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Value(b).
		Detail("invalid boolean byte 0x%02x", b).
		Build()
}

// ReadFloat reads a 4-byte little-endian IEEE-754 single.
func (r *Reader) ReadFloat() (float32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadDouble reads an 8-byte little-endian IEEE-754 double.
func (r *Reader) ReadDouble() (float64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadBytes reads a length-prefixed byte string. The result is a copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "negative bytes length")
	}
	if n > int64(r.Len()) {
		return nil, errors.Truncated(errors.PhaseDecode, nil, int(min(n, math.MaxInt32)), r.Len())
	}
	b, _ := r.Next(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ReadString reads a length-prefixed byte string and validates UTF-8.
func (r *Reader) ReadString() ([]byte, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errors.InvalidUTF8(errors.PhaseDecode, nil, b)
	}
	return b, nil
}

// ReadFixed reads exactly n raw bytes. The result is a copy.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	b, err := r.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadBlockCount reads the item count of the next array or map block.
// A negative count is followed by the block's byte size, which is
// returned as size; otherwise size is -1.
func (r *Reader) ReadBlockCount() (count int64, size int64, err error) {
	count, err = r.ReadLong()
	if err != nil {
		return 0, 0, err
	}
	if count >= 0 {
		return count, -1, nil
	}
	if count == math.MinInt64 {
		return 0, 0, errors.Overflow(errors.PhaseDecode, nil, count, "block count")
	}
	size, err = r.ReadLong()
	if err != nil {
		return 0, 0, err
	}
	return -count, size, nil
}

// CountEmpty records a block item that consumed no input. It reports
// false once more than MaxEmptyItems such items have been read.
func (r *Reader) CountEmpty() bool {
	r.empty++
	return r.empty <= MaxEmptyItems
}

// SkipLong advances past one varint.
func (r *Reader) SkipLong() error {
	_, err := r.ReadLong()
	return err
}

// SkipBytes advances past one length-prefixed byte string.
func (r *Reader) SkipBytes() error {
	n, err := r.ReadLong()
	if err != nil {
		return err
	}
	if n < 0 {
		return errors.InvalidData(errors.PhaseDecode, nil, "negative bytes length")
	}
	if n > int64(r.Len()) {
		return errors.Truncated(errors.PhaseDecode, nil, int(min(n, math.MaxInt32)), r.Len())
	}
	r.pos += int(n)
	return nil
}

// Skip advances past n raw bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.Next(n)
	return err
}

// Unzigzag maps an unsigned zigzag value back to its signed form.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}
