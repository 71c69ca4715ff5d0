package envelope

import (
	"fmt"
	"strconv"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/bequest/crypto"
	"github.com/jmcleod/bequest/internal/util"
)

// Status is the outcome of opening an envelope.
type Status string

const (
	// StatusOK means the checksum verified, the credentials matched and the
	// license is immortal or not yet expired.
	StatusOK Status = "ok"
	// StatusExpired means the credentials matched but the expiry has passed.
	StatusExpired Status = "expired"
	// StatusUnauthorized means the checksum verified but the payload could
	// not be recovered with the supplied credentials.
	StatusUnauthorized Status = "unauthorized"
	// StatusTampered means the envelope failed its checksum or could not be
	// parsed at all.
	StatusTampered Status = "tampered"
)

// Credentials are the secrets a license is bound to. Empty means absent.
type Credentials struct {
	Password   string
	HardwareID string
}

// Any reports whether at least one credential is non-empty.
func (c Credentials) Any() bool {
	return c.Password != "" || c.HardwareID != ""
}

// CredentialFunc supplies a credential on demand, e.g. by prompting a user or
// querying the local machine.
type CredentialFunc func() (string, error)

// Prompts resolve credentials that an envelope requires but the caller did
// not supply. A nil func resolves to the empty string.
type Prompts struct {
	Password   CredentialFunc
	HardwareID CredentialFunc
}

// Result is what Decode recovers. ExpiresAt is zero unless the envelope has an
// expiry and the status is StatusOK or StatusExpired; Payload is nil unless the
// status is StatusOK.
type Result struct {
	Status    Status
	ExpiresAt time.Time
	Payload   []byte
}

// HasExpiry reports whether an expiry was recovered.
func (r Result) HasExpiry() bool {
	return !r.ExpiresAt.IsZero()
}

// Codec seals and opens envelopes. The zero value is not usable; create one
// with NewCodec. A Codec has no mutable state and is safe for concurrent use.
type Codec struct {
	deriver    crypto.KeyDeriver
	now        func() time.Time
	maxPayload int
}

// MaxPayloadSize is the default limit on payload size.
const MaxPayloadSize = util.MaxInflatedSize

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithKeyDeriver replaces the default crypto.SaltedSHA256 deriver. Issuer and
// validator must use the same deriver.
func WithKeyDeriver(d crypto.KeyDeriver) CodecOption {
	return func(c *Codec) {
		c.deriver = d
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.now = now
	}
}

// WithMaxPayloadSize sets the largest payload Encode accepts and Decode
// restores. Non-positive values keep MaxPayloadSize. A validator needs a
// limit at least as large as the issuer's.
func WithMaxPayloadSize(n int) CodecOption {
	return func(c *Codec) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// NewCodec returns a Codec using crypto.SaltedSHA256, the system clock and
// MaxPayloadSize unless overridden.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		deriver:    crypto.SaltedSHA256{},
		now:        time.Now,
		maxPayload: MaxPayloadSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec's current time.
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode seals payload under creds. A zero expiresAt produces an immortal
// license. Encode does not enforce that creds are non-empty; that is the
// issuing layer's policy. Payloads above the size limit fail with
// ErrPayloadTooLarge.
func (c *Codec) Encode(payload []byte, creds Credentials, expiresAt time.Time) (*Envelope, error) {
	if len(payload) > c.maxPayload {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPayloadTooLarge, len(payload), c.maxPayload)
	}

	compressed, err := util.Deflate(payload)
	if err != nil {
		return nil, err
	}

	iv, err := util.NewAESIV()
	if err != nil {
		return nil, err
	}

	keyBuf := c.deriveKey(creds.Password, creds.HardwareID)
	defer keyBuf.Destroy()

	encryptedPayload, err := util.EncryptAESStream(compressed, keyBuf.Bytes(), iv)
	if err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}

	e := &Envelope{
		requiresPassword:   creds.Password != "",
		requiresHardwareID: creds.HardwareID != "",
		encryptedPayload:   encryptedPayload,
		iv:                 iv,
	}

	if !expiresAt.IsZero() {
		stamp := []byte(strconv.FormatInt(expiresAt.Unix(), 10))
		e.encryptedExpiry, err = util.EncryptAESStream(stamp, keyBuf.Bytes(), iv)
		if err != nil {
			return nil, fmt.Errorf("encrypting expiry: %w", err)
		}
		e.hasExpiry = true
	}

	e.seal()
	return e, nil
}

// Decode opens an envelope with the codec's clock.
func (c *Codec) Decode(e *Envelope, creds Credentials, prompts Prompts) Result {
	return c.DecodeAt(e, creds, prompts, c.now())
}

// DecodeAt opens an envelope, judging expiry against now. Every failure is
// reported through Result.Status; DecodeAt never returns an error.
//
// Credentials are resolved first, then the checksum is verified; nothing is
// decrypted unless the checksum matches.
func (c *Codec) DecodeAt(e *Envelope, creds Credentials, prompts Prompts, now time.Time) Result {
	if e == nil {
		return Result{Status: StatusTampered}
	}

	password, pwErr := resolveCredential(e.requiresPassword, creds.Password, prompts.Password)
	hardwareID, hwErr := resolveCredential(e.requiresHardwareID, creds.HardwareID, prompts.HardwareID)

	if !e.Verify() {
		return Result{Status: StatusTampered}
	}
	if pwErr != nil || hwErr != nil {
		return Result{Status: StatusUnauthorized}
	}

	keyBuf := c.deriveKey(password, hardwareID)
	defer keyBuf.Destroy()

	compressed, err := util.DecryptAESStream(e.encryptedPayload, keyBuf.Bytes(), e.iv)
	if err != nil {
		return Result{Status: StatusUnauthorized}
	}
	payload, err := util.Inflate(compressed, c.maxPayload)
	if err != nil {
		return Result{Status: StatusUnauthorized}
	}

	if !e.hasExpiry {
		return Result{Status: StatusOK, Payload: payload}
	}

	stamp, err := util.DecryptAESStream(e.encryptedExpiry, keyBuf.Bytes(), e.iv)
	if err != nil {
		return Result{Status: StatusUnauthorized}
	}
	secs, err := strconv.ParseInt(string(stamp), 10, 64)
	if err != nil {
		return Result{Status: StatusUnauthorized}
	}
	expiresAt := time.Unix(secs, 0)

	if expiresAt.Before(now) {
		return Result{Status: StatusExpired, ExpiresAt: expiresAt}
	}
	return Result{Status: StatusOK, ExpiresAt: expiresAt, Payload: payload}
}

func (c *Codec) deriveKey(password, hardwareID string) *memguard.LockedBuffer {
	return memguard.NewBufferFromBytes(c.deriver.DeriveKey(password, hardwareID))
}

func resolveCredential(required bool, supplied string, fn CredentialFunc) (string, error) {
	if !required {
		return "", nil
	}
	if supplied != "" {
		return supplied, nil
	}
	if fn == nil {
		return "", nil
	}
	return fn()
}
