package messaging

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/avro-model/errors"
)

const (
	// MagicByte opens every framed message.
	MagicByte byte = 0

	// HeaderSize is the magic byte plus the big-endian uint32 schema id.
	HeaderSize = 5
)

// MagicByteError reports a message that does not start with MagicByte.
type MagicByteError struct {
	Got byte
}

func (e *MagicByteError) Error() string {
	return fmt.Sprintf("expected data to begin with magic byte 0x%02x, got 0x%02x", MagicByte, e.Got)
}

// AppendHeader appends the frame header for schema id to dst.
func AppendHeader(dst []byte, id int) []byte {
	dst = append(dst, MagicByte)
	return binary.BigEndian.AppendUint32(dst, uint32(id))
}

// Frame returns header and payload as one message.
func Frame(id int, payload []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(payload))
	return append(AppendHeader(out, id), payload...)
}

// ParseHeader splits a framed message into its schema id and payload.
// The payload aliases data.
func ParseHeader(data []byte) (int, []byte, error) {
	if len(data) < HeaderSize {
		return 0, nil, errors.Truncated(errors.PhaseFraming, nil, HeaderSize, len(data))
	}
	if data[0] != MagicByte {
		return 0, nil, errors.New(errors.PhaseFraming, errors.KindMagicByte).
			Value(data[0]).
			Cause(&MagicByteError{Got: data[0]}).
			Build()
	}
	return int(binary.BigEndian.Uint32(data[1:HeaderSize])), data[HeaderSize:], nil
}
