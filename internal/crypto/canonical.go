// Package icrypto holds the canonical byte encoding shared by envelope
// checksums and on-disk framing.
package icrypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

const ChecksumSize = sha256.Size

const (
	tagAbsent  byte = 0
	tagPresent byte = 1
)

// Optional is a byte field that may be absent. An absent field encodes as a
// single zero tag, so it can never collide with a present empty value.
type Optional struct {
	Present bool
	Value   []byte
}

// Canonical joins parts into an unambiguous byte string. Byte slices are
// length-prefixed, booleans are one byte and Optional values carry a presence
// tag. Any other part type is a programming error and panics.
func Canonical(parts ...any) []byte {
	var res []byte
	for _, p := range parts {
		switch v := p.(type) {
		case []byte:
			res = appendLenPrefix(res, v)
		case bool:
			res = appendBool(res, v)
		case Optional:
			if !v.Present {
				res = append(res, tagAbsent)
				continue
			}
			res = append(res, tagPresent)
			res = appendLenPrefix(res, v.Value)
		default:
			panic(fmt.Sprintf("icrypto: unsupported canonical part %T", p))
		}
	}
	return res
}

func appendLenPrefix(b, data []byte) []byte {
	b = binary.BigEndian.AppendUint32(b, uint32(len(data)))
	return append(b, data...)
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

// Checksum returns the SHA-256 digest of a canonical encoding.
func Checksum(canonical []byte) [ChecksumSize]byte {
	return sha256.Sum256(canonical)
}

// VerifyChecksum recomputes the digest of canonical and compares it to want
// in constant time.
func VerifyChecksum(canonical, want []byte) bool {
	sum := Checksum(canonical)
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}
