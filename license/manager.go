// Package license issues and validates license files: an opaque payload
// sealed in an envelope bound to a password and/or a hardware id, optionally
// with an expiry.
package license

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/storage"
)

// Manager creates and loads license files through a storage.Store.
// A Manager is safe for concurrent use.
type Manager struct {
	store     storage.Store
	payloads  storage.Store
	codec     *envelope.Codec
	logger    *slog.Logger
	prompts   envelope.Prompts
	watermark Watermark
}

// New returns a Manager that writes and reads license files in store.
//
// Without WithWatermark the expiry check trusts the local clock.
func New(store storage.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		codec:  envelope.NewCodec(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.payloads == nil {
		m.payloads = m.store
	}
	return m
}

// Create reads the payload at payloadPath, seals it and writes the serialized
// envelope to licensePath. It returns ErrNoCredentials before touching either
// store when neither a password nor a hardware id is given.
func (m *Manager) Create(ctx context.Context, payloadPath, licensePath string, opts ...CreateOption) (*envelope.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !newCallOptions(opts).creds.Any() {
		return nil, ErrNoCredentials
	}

	payload, err := m.payloads.ReadBytes(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}

	data, env, err := m.Issue(payload, opts...)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.store.WriteBytes(licensePath, data); err != nil {
		return nil, fmt.Errorf("writing license: %w", err)
	}

	m.logger.Debug("license created",
		slog.String("path", licensePath),
		slog.Bool("requires_password", env.RequiresPassword()),
		slog.Bool("requires_hardware_id", env.RequiresHardwareID()),
		slog.Bool("has_expiry", env.HasExpiry()),
	)
	return env, nil
}

// Issue seals payload and returns the serialized envelope alongside it.
func (m *Manager) Issue(payload []byte, opts ...CreateOption) ([]byte, *envelope.Envelope, error) {
	o := newCallOptions(opts)
	if !o.creds.Any() {
		return nil, nil, ErrNoCredentials
	}

	env, err := m.codec.Encode(payload, o.creds, o.expiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("sealing license: %w", err)
	}
	return envelope.Marshal(env), env, nil
}

// Load reads and opens the license file at licensePath. Only storage errors
// and context cancellation are returned; every validation failure is
// reported through the License status.
func (m *Manager) Load(ctx context.Context, licensePath string, opts ...LoadOption) (*License, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := m.store.ReadBytes(licensePath)
	if err != nil {
		return nil, fmt.Errorf("reading license: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lic := m.Open(data, append(opts[:len(opts):len(opts)], RecordWatermark())...)
	m.logger.Debug("license loaded",
		slog.String("path", licensePath),
		slog.String("status", string(lic.Status())),
	)
	return lic, nil
}

// Open validates a serialized envelope. Bytes that do not parse as an
// envelope yield a tampered license. The watermark is consulted but only
// updated when RecordWatermark is given.
func (m *Manager) Open(data []byte, opts ...LoadOption) *License {
	env, err := envelope.Unmarshal(data)
	if err != nil {
		m.logger.Debug("license unreadable", slog.String("error", err.Error()))
		return newLicense(envelope.Result{Status: envelope.StatusTampered})
	}

	o := newCallOptions(opts)
	now := m.codec.Now()
	key := env.ChecksumHex()
	if m.watermark != nil {
		now = m.adjustClock(key, now)
	}

	res := m.codec.DecodeAt(env, o.creds, m.prompts, now)

	if m.watermark != nil && o.recordWatermark && res.Status != envelope.StatusTampered {
		if err := m.watermark.Observe(key, now.Unix()); err != nil {
			m.logger.Warn("recording license watermark failed", slog.String("error", err.Error()))
		}
	}
	return newLicense(res)
}

// adjustClock returns the later of now and the latest time already observed
// for the envelope.
func (m *Manager) adjustClock(key string, now time.Time) time.Time {
	seen, err := m.watermark.MaxSeen(key)
	if err != nil {
		m.logger.Warn("reading license watermark failed", slog.String("error", err.Error()))
		return now
	}
	if now.Unix() >= seen {
		return now
	}
	m.logger.Warn("local clock is behind license watermark",
		slog.Time("now", now),
		slog.Time("watermark", time.Unix(seen, 0)),
	)
	return time.Unix(seen, 0)
}
