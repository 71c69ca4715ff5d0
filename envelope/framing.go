package envelope

import (
	"encoding/binary"
	"fmt"
)

// FormatVersion is the current on-disk layout:
//
//	"BQLC" | version | checksum[32] | fields
//
// where fields is the canonical encoding covered by the checksum.
const FormatVersion = 1

var magic = [4]byte{'B', 'Q', 'L', 'C'}

const headerSize = len(magic) + 1 + ChecksumSize

// Marshal serialises the envelope into its versioned binary frame.
func Marshal(e *Envelope) []byte {
	fields := e.canonicalFields()
	out := make([]byte, 0, headerSize+len(fields))
	out = append(out, magic[:]...)
	out = append(out, FormatVersion)
	out = append(out, e.checksum[:]...)
	return append(out, fields...)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	return Marshal(e), nil
}

// Unmarshal parses a binary frame. It checks structure only; the checksum is
// verified by Codec.Decode.
func Unmarshal(data []byte) (*Envelope, error) {
	if len(data) < headerSize {
		return nil, ErrTruncated
	}
	if [4]byte(data[:4]) != magic {
		return nil, ErrInvalidMagic
	}
	if v := data[4]; v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	e := &Envelope{}
	copy(e.checksum[:], data[5:headerSize])

	r := &frameReader{buf: data[headerSize:]}
	switch tag := r.readByte(); tag {
	case 0:
	case 1:
		e.hasExpiry = true
		e.encryptedExpiry = r.readLenPrefixed()
	default:
		if r.err == nil {
			return nil, fmt.Errorf("%w: expiry tag %d", ErrMalformed, tag)
		}
	}
	e.requiresPassword = r.readBool()
	e.requiresHardwareID = r.readBool()
	e.encryptedPayload = r.readLenPrefixed()
	e.iv = r.readLenPrefixed()
	if r.err != nil {
		return nil, r.err
	}
	if len(e.iv) != IVSize {
		return nil, fmt.Errorf("%w: iv length %d", ErrMalformed, len(e.iv))
	}
	if r.off != len(r.buf) {
		return nil, ErrTrailingData
	}
	return e, nil
}

// frameReader consumes the canonical field encoding. The first error sticks
// and later reads return zero values.
type frameReader struct {
	buf []byte
	off int
	err error
}

func (r *frameReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *frameReader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *frameReader) readBool() bool {
	v := r.readByte()
	if r.err == nil && v > 1 {
		r.err = fmt.Errorf("%w: boolean byte %d", ErrMalformed, v)
	}
	return v == 1
}

func (r *frameReader) readLenPrefixed() []byte {
	l := r.take(4)
	if l == nil {
		return nil
	}
	n := binary.BigEndian.Uint32(l)
	if uint64(n) > uint64(len(r.buf)-r.off) {
		r.err = ErrTruncated
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
