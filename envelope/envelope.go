// Package envelope implements the license envelope: an immutable record that
// carries a compressed, encrypted payload, an optional encrypted expiry and a
// checksum over every stored field.
package envelope

import (
	icrypto "github.com/jmcleod/bequest/internal/crypto"
	"github.com/jmcleod/bequest/internal/util"
)

const (
	ChecksumSize = icrypto.ChecksumSize
	IVSize       = util.AESIVSize
)

// Envelope is a sealed license. It is never modified after construction;
// accessors return copies.
type Envelope struct {
	checksum           [ChecksumSize]byte
	hasExpiry          bool
	encryptedExpiry    []byte
	requiresPassword   bool
	requiresHardwareID bool
	encryptedPayload   []byte
	iv                 []byte
}

// Checksum returns the stored checksum.
func (e *Envelope) Checksum() []byte {
	return util.CopyBytes(e.checksum[:])
}

// ChecksumHex returns the checksum as lowercase hex.
func (e *Envelope) ChecksumHex() string {
	return util.HexEncode(e.checksum[:])
}

// RequiresPassword reports whether the issuer bound the license to a password.
func (e *Envelope) RequiresPassword() bool {
	return e.requiresPassword
}

// RequiresHardwareID reports whether the issuer bound the license to a hardware id.
func (e *Envelope) RequiresHardwareID() bool {
	return e.requiresHardwareID
}

// HasExpiry reports whether the license carries an encrypted expiry.
func (e *Envelope) HasExpiry() bool {
	return e.hasExpiry
}

func (e *Envelope) EncryptedPayload() []byte {
	return util.CopyBytes(e.encryptedPayload)
}

func (e *Envelope) EncryptedExpiry() []byte {
	return util.CopyBytes(e.encryptedExpiry)
}

func (e *Envelope) IV() []byte {
	return util.CopyBytes(e.iv)
}

// Verify recomputes the checksum over the envelope's fields and compares it
// with the stored one.
func (e *Envelope) Verify() bool {
	return icrypto.VerifyChecksum(e.canonicalFields(), e.checksum[:])
}

// canonicalFields is the single encoding used both as checksum input and as
// the body of the persisted frame.
func (e *Envelope) canonicalFields() []byte {
	return icrypto.Canonical(
		icrypto.Optional{Present: e.hasExpiry, Value: e.encryptedExpiry},
		e.requiresPassword,
		e.requiresHardwareID,
		e.encryptedPayload,
		e.iv,
	)
}

func (e *Envelope) seal() {
	e.checksum = icrypto.Checksum(e.canonicalFields())
}
