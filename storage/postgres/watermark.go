package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Watermark persists the latest unix time observed per license in the
// license_watermarks table. Reads are served from an in-memory map that is
// loaded on creation; writes go through to PostgreSQL first.
type Watermark struct {
	pool  *pgxpool.Pool
	mu    sync.RWMutex
	cache map[string]int64
}

// NewWatermark loads existing watermarks from the database.
func NewWatermark(ctx context.Context, pool *pgxpool.Pool) (*Watermark, error) {
	w := &Watermark{
		pool:  pool,
		cache: make(map[string]int64),
	}

	rows, err := pool.Query(ctx, `SELECT key, max_seen FROM license_watermarks`)
	if err != nil {
		return nil, fmt.Errorf("loading watermarks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var seen int64
		if err := rows.Scan(&key, &seen); err != nil {
			return nil, fmt.Errorf("scanning watermark: %w", err)
		}
		w.cache[key] = seen
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating watermarks: %w", err)
	}
	return w, nil
}

func (w *Watermark) MaxSeen(key string) (int64, error) {
	w.mu.RLock()
	seen, ok := w.cache[key]
	w.mu.RUnlock()
	if ok {
		return seen, nil
	}

	// Another process may have recorded the key since we loaded.
	err := w.pool.QueryRow(context.Background(),
		`SELECT max_seen FROM license_watermarks WHERE key = $1`, key).Scan(&seen)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	if seen > w.cache[key] {
		w.cache[key] = seen
	}
	w.mu.Unlock()
	return seen, nil
}

// Observe records unix as seen for key. Values older than the stored
// watermark are ignored; the row only ever moves forward.
func (w *Watermark) Observe(key string, unix int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if unix <= w.cache[key] {
		return nil
	}

	var stored int64
	err := w.pool.QueryRow(context.Background(),
		`INSERT INTO license_watermarks (key, max_seen) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE
		   SET max_seen = GREATEST(license_watermarks.max_seen, EXCLUDED.max_seen)
		 RETURNING max_seen`,
		key, unix).Scan(&stored)
	if err != nil {
		return err
	}

	w.cache[key] = stored
	return nil
}
