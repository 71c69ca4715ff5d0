// Package crypto derives the symmetric keys that bind a license envelope to
// its credentials.
package crypto

import (
	"crypto/sha256"
	"strings"

	"github.com/jmcleod/bequest/internal/util"
)

// Argon2idParams configures Argon2id key derivation.
type Argon2idParams = util.Argon2idParams

// KeySize is the length in bytes of every derived key.
const KeySize = util.AESKeySize

// Domain-separation constants wrapped around the credentials before hashing.
// They are public; issuer and validator only need to agree on them.
const (
	saltPrefix    = "bequest:license:v1:password="
	saltSeparator = ":hardware-id="
	saltSuffix    = ":end"
)

// KeyDeriver turns a password and a hardware id into a KeySize key. Either
// credential may be empty. Implementations are pure and never fail.
type KeyDeriver interface {
	DeriveKey(password, hardwareID string) []byte
}

// SaltedSHA256 is the default KeyDeriver: SHA-256 over the salted
// concatenation of both credentials.
type SaltedSHA256 struct{}

var _ KeyDeriver = SaltedSHA256{}

func (SaltedSHA256) DeriveKey(password, hardwareID string) []byte {
	input := saltedInput(password, hardwareID)
	defer util.WipeBytes(input)
	sum := sha256.Sum256(input)
	return sum[:]
}

// DeriveKey derives a key with the default SaltedSHA256 deriver.
func DeriveKey(password, hardwareID string) []byte {
	return SaltedSHA256{}.DeriveKey(password, hardwareID)
}

// Argon2idDeriver stretches the same salted input with Argon2id. Licenses
// issued with it can only be opened by a validator configured identically.
type Argon2idDeriver struct {
	Params Argon2idParams
}

var _ KeyDeriver = Argon2idDeriver{}

// NewArgon2idDeriver returns a deriver for a named profile
// (KDFProfileInteractive, KDFProfileModerate or KDFProfileSensitive).
func NewArgon2idDeriver(profile string) (Argon2idDeriver, error) {
	params, err := util.Argon2idProfile(profile)
	if err != nil {
		return Argon2idDeriver{}, err
	}
	if err := util.ValidateArgon2idParams(params); err != nil {
		return Argon2idDeriver{}, err
	}
	return Argon2idDeriver{Params: params}, nil
}

func (d Argon2idDeriver) DeriveKey(password, hardwareID string) []byte {
	params := d.Params
	params.KeyLen = KeySize
	input := saltedInput(password, hardwareID)
	defer util.WipeBytes(input)
	key, _ := util.DeriveArgon2idKey(input, []byte(saltPrefix+saltSuffix), params)
	return key
}

// NormalizeHardwareID canonicalises a hardware id so that MAC addresses
// typed in either case bind to the same key.
func NormalizeHardwareID(hardwareID string) string {
	return strings.ToLower(strings.TrimSpace(hardwareID))
}

func saltedInput(password, hardwareID string) []byte {
	var sb strings.Builder
	sb.WriteString(saltPrefix)
	sb.WriteString(util.Normalize(password))
	sb.WriteString(saltSeparator)
	sb.WriteString(NormalizeHardwareID(hardwareID))
	sb.WriteString(saltSuffix)
	return []byte(sb.String())
}

// Named KDF profiles for Argon2idDeriver.
const (
	KDFProfileInteractive = util.KDFProfileInteractive
	KDFProfileModerate    = util.KDFProfileModerate
	KDFProfileSensitive   = util.KDFProfileSensitive
)
