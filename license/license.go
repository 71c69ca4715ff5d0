package license

import (
	"time"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/internal/util"
)

// License is the outcome of opening a license envelope. It is never persisted.
type License struct {
	status    envelope.Status
	expiresAt time.Time
	payload   []byte
}

func newLicense(r envelope.Result) *License {
	return &License{
		status:    r.Status,
		expiresAt: r.ExpiresAt,
		payload:   r.Payload,
	}
}

// Status returns the validation outcome.
func (l *License) Status() envelope.Status {
	return l.status
}

// Valid reports whether the status is ok.
func (l *License) Valid() bool {
	return l.status == envelope.StatusOK
}

// ExpiresAt returns the expiry and true when the license carries one and it
// could be recovered.
func (l *License) ExpiresAt() (time.Time, bool) {
	return l.expiresAt, !l.expiresAt.IsZero()
}

// Expired reports whether the license had expired when it was opened. known
// is false when no expiry could be recovered, either because the license is
// immortal or because it failed to open.
func (l *License) Expired() (expired bool, known bool) {
	if l.expiresAt.IsZero() {
		return false, false
	}
	return l.status == envelope.StatusExpired, true
}

// Payload returns a copy of the recovered payload, or nil unless the status
// is ok.
func (l *License) Payload() []byte {
	return util.CopyBytes(l.payload)
}
