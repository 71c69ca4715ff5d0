package license

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/storage/memory"
)

type fakeClock struct {
	unix atomic.Int64
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(c.unix.Load(), 0)
}

func (c *fakeClock) Set(t time.Time) {
	c.unix.Store(t.Unix())
}

func TestWatermark_DefeatsClockRollback(t *testing.T) {
	clock := &fakeClock{}
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(issued)

	m := New(memory.NewStore(),
		WithCodec(envelope.NewCodec(envelope.WithClock(clock.Now))),
		WithWatermark(NewMemoryWatermark()),
	)
	data, _, err := m.Issue([]byte("x"), WithPassword("p"), WithExpiry(issued.Add(time.Hour)))
	require.NoError(t, err)

	assert.Equal(t, envelope.StatusOK, m.Open(data, WithPassword("p"), RecordWatermark()).Status())

	clock.Set(issued.Add(2 * time.Hour))
	assert.Equal(t, envelope.StatusExpired, m.Open(data, WithPassword("p"), RecordWatermark()).Status())

	// Rolling the clock back does not revive the license.
	clock.Set(issued.Add(time.Minute))
	assert.Equal(t, envelope.StatusExpired, m.Open(data, WithPassword("p"), RecordWatermark()).Status())
	assert.Equal(t, envelope.StatusExpired, m.Open(data, WithPassword("p")).Status())
}

func TestWatermark_OpenRecordsOnlyOnRequest(t *testing.T) {
	w := NewMemoryWatermark()
	m := New(memory.NewStore(), WithWatermark(w))

	for i := range 50 {
		data, _, err := m.Issue([]byte{byte(i)}, WithPassword("p"))
		require.NoError(t, err)
		require.Equal(t, envelope.StatusOK, m.Open(data, WithPassword("p")).Status())
	}
	assert.Empty(t, w.seen)

	data, env, err := m.Issue([]byte("x"), WithPassword("p"))
	require.NoError(t, err)
	m.Open(data, WithPassword("p"), RecordWatermark())
	seen, err := w.MaxSeen(env.ChecksumHex())
	require.NoError(t, err)
	assert.Positive(t, seen)
	assert.Len(t, w.seen, 1)
}

func TestWatermark_LoadRecords(t *testing.T) {
	w := NewMemoryWatermark()
	store := memory.NewStore()
	require.NoError(t, store.WriteBytes("payload", []byte("x")))
	m := New(store, WithWatermark(w))

	opts := []Option{WithPassword("p")}
	env, err := m.Create(t.Context(), "payload", "lic.dat", opts...)
	require.NoError(t, err)
	lic, err := m.Load(t.Context(), "lic.dat", opts...)
	require.NoError(t, err)
	require.True(t, lic.Valid())

	seen, err := w.MaxSeen(env.ChecksumHex())
	require.NoError(t, err)
	assert.Positive(t, seen)
	assert.Len(t, opts, 1, "caller options are not modified")
}

func TestWatermark_IgnoresTampered(t *testing.T) {
	w := NewMemoryWatermark()
	m := New(memory.NewStore(), WithWatermark(w))

	m.Open([]byte("garbage"), RecordWatermark())
	data, _, err := m.Issue([]byte("x"), WithPassword("p"))
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	assert.Equal(t, envelope.StatusTampered, m.Open(data, WithPassword("p"), RecordWatermark()).Status())

	assert.Empty(t, w.seen)
}

func TestWithoutWatermark_TrustsClock(t *testing.T) {
	clock := &fakeClock{}
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(issued.Add(2 * time.Hour))

	m := New(memory.NewStore(), WithCodec(envelope.NewCodec(envelope.WithClock(clock.Now))))
	data, _, err := m.Issue([]byte("x"), WithPassword("p"), WithExpiry(issued.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, envelope.StatusExpired, m.Open(data, WithPassword("p")).Status())

	clock.Set(issued)
	assert.Equal(t, envelope.StatusOK, m.Open(data, WithPassword("p")).Status())
}

func TestMemoryWatermark(t *testing.T) {
	w := NewMemoryWatermark()
	require.NoError(t, w.Observe("k", 100))
	require.NoError(t, w.Observe("k", 50))
	seen, err := w.MaxSeen("k")
	require.NoError(t, err)
	assert.Equal(t, int64(100), seen)
}

func TestBoltWatermark_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.db")

	db, err := bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	w, err := NewBoltWatermark(db)
	require.NoError(t, err)
	require.NoError(t, w.Observe("k", 100))
	require.NoError(t, w.Observe("k", 50))
	require.NoError(t, db.Close())

	db, err = bbolt.Open(path, 0600, nil)
	require.NoError(t, err)
	defer db.Close()
	w, err = NewBoltWatermark(db)
	require.NoError(t, err)

	seen, err := w.MaxSeen("k")
	require.NoError(t, err)
	assert.Equal(t, int64(100), seen)
}

func TestBoltWatermarkFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.db")

	w, err := NewBoltWatermarkFromFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Observe("k", 42))
	require.NoError(t, w.Close())

	w, err = NewBoltWatermarkFromFile(path, nil)
	require.NoError(t, err)
	defer w.Close()
	seen, err := w.MaxSeen("k")
	require.NoError(t, err)
	assert.Equal(t, int64(42), seen)
}
