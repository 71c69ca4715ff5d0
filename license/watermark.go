package license

import (
	"encoding/binary"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

// Watermark tracks the latest unix time observed per license so that
// rolling the local clock back cannot revive an expired license.
type Watermark interface {
	MaxSeen(key string) (int64, error)
	// Observe records unix for key. Values older than the current
	// watermark are ignored.
	Observe(key string, unix int64) error
}

// MemoryWatermark is an in-memory Watermark suitable for tests and
// single-process use.
type MemoryWatermark struct {
	mu   sync.RWMutex
	seen map[string]int64
}

// NewMemoryWatermark returns an empty in-memory watermark.
func NewMemoryWatermark() *MemoryWatermark {
	return &MemoryWatermark{
		seen: make(map[string]int64),
	}
}

func (w *MemoryWatermark) MaxSeen(key string) (int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.seen[key], nil
}

func (w *MemoryWatermark) Observe(key string, unix int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if unix > w.seen[key] {
		w.seen[key] = unix
	}
	return nil
}

var watermarkBucket = []byte("__license_watermarks")

// BoltWatermark persists watermarks in a dedicated BBolt bucket. Reads come
// from an in-memory map; writes persist to BBolt before updating it.
type BoltWatermark struct {
	db     *bbolt.DB
	ownsDB bool
	mu     sync.RWMutex
	cache  map[string]int64
}

// NewBoltWatermark returns a persistent watermark backed by db, loading any
// values recorded by earlier runs.
func NewBoltWatermark(db *bbolt.DB) (*BoltWatermark, error) {
	w := &BoltWatermark{
		db:    db,
		cache: make(map[string]int64),
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(watermarkBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if len(v) == 8 {
				w.cache[string(k)] = int64(binary.BigEndian.Uint64(v))
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("loading watermarks: %w", err)
	}
	return w, nil
}

// NewBoltWatermarkFromFile opens a BBolt database at path and returns a
// BoltWatermark that owns it.
func NewBoltWatermarkFromFile(path string, options *bbolt.Options) (*BoltWatermark, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	w, err := NewBoltWatermark(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	w.ownsDB = true
	return w, nil
}

// Close closes the database if the watermark opened it.
func (w *BoltWatermark) Close() error {
	if !w.ownsDB {
		return nil
	}
	return w.db.Close()
}

func (w *BoltWatermark) MaxSeen(key string) (int64, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cache[key], nil
}

func (w *BoltWatermark) Observe(key string, unix int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if unix <= w.cache[key] {
		return nil
	}

	err := w.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(watermarkBucket)
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(unix))
		return b.Put([]byte(key), buf[:])
	})
	if err != nil {
		return err
	}

	w.cache[key] = unix
	return nil
}
