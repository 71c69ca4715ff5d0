package license

import (
	"log/slog"
	"time"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/storage"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPayloadStore sets the store Create reads payloads from. Defaults to the
// license store.
func WithPayloadStore(s storage.Store) ManagerOption {
	return func(m *Manager) {
		m.payloads = s
	}
}

// WithCodec replaces the default envelope codec, e.g. to change the key
// deriver or the clock.
func WithCodec(c *envelope.Codec) ManagerOption {
	return func(m *Manager) {
		m.codec = c
	}
}

// WithLogger sets the logger for create/load events.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPrompter sets the func consulted when a license requires a password
// and none was supplied.
func WithPrompter(fn envelope.CredentialFunc) ManagerOption {
	return func(m *Manager) {
		m.prompts.Password = fn
	}
}

// WithHardwareIDSource sets the func consulted when a license requires a
// hardware id and none was supplied, normally host.HardwareID.
func WithHardwareIDSource(fn envelope.CredentialFunc) ManagerOption {
	return func(m *Manager) {
		m.prompts.HardwareID = fn
	}
}

// WithWatermark enables the clock-rollback guard.
func WithWatermark(w Watermark) ManagerOption {
	return func(m *Manager) {
		m.watermark = w
	}
}

// Option configures a single Create, Load, Issue or Open call.
type Option func(*callOptions)

// CreateOption configures license creation.
type CreateOption = Option

// LoadOption configures license loading. WithExpiry has no effect on loads.
type LoadOption = Option

type callOptions struct {
	creds           envelope.Credentials
	expiresAt       time.Time
	recordWatermark bool
}

func newCallOptions(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPassword binds (or unlocks) the license with a password.
func WithPassword(password string) Option {
	return func(o *callOptions) {
		o.creds.Password = password
	}
}

// WithHardwareID binds (or unlocks) the license with a hardware id.
func WithHardwareID(hardwareID string) Option {
	return func(o *callOptions) {
		o.creds.HardwareID = hardwareID
	}
}

// WithExpiry makes the issued license expire at t. The zero time means the
// license never expires.
func WithExpiry(t time.Time) Option {
	return func(o *callOptions) {
		o.expiresAt = t
	}
}

// RecordWatermark makes Open record the validation time in the manager's
// watermark. Load always records. Without it Open only reads the watermark,
// so envelopes from outside the manager's store leave no trace.
func RecordWatermark() Option {
	return func(o *callOptions) {
		o.recordWatermark = true
	}
}
