package envelope

import "errors"

// Framing errors returned by Unmarshal. Callers validating a license treat
// all of them as tampering.
var (
	ErrInvalidMagic       = errors.New("invalid license envelope magic")
	ErrUnsupportedVersion = errors.New("unsupported license envelope version")
	ErrTruncated          = errors.New("license envelope truncated")
	ErrMalformed          = errors.New("malformed license envelope")
	ErrTrailingData       = errors.New("trailing data after license envelope")
)

// ErrPayloadTooLarge is returned by Encode for a payload above the codec's
// size limit.
var ErrPayloadTooLarge = errors.New("license payload too large")
