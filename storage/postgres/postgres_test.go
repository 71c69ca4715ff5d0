package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmcleod/bequest/storage"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("BEQUEST_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BEQUEST_TEST_POSTGRES_DSN not set; skipping PostgreSQL tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("could not connect to postgres: %v", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("could not ensure schema: %v", err)
	}

	// Clean tables for test isolation.
	pool.Exec(ctx, "DELETE FROM licenses")           //nolint:errcheck
	pool.Exec(ctx, "DELETE FROM license_watermarks") //nolint:errcheck

	t.Cleanup(func() {
		pool.Exec(ctx, "DELETE FROM licenses")           //nolint:errcheck
		pool.Exec(ctx, "DELETE FROM license_watermarks") //nolint:errcheck
		pool.Close()
	})
	return pool
}

func TestPostgresStore(t *testing.T) {
	s := NewStore(newTestPool(t))

	t.Run("WriteRead", func(t *testing.T) {
		if err := s.WriteBytes("lic1", []byte("envelope")); err != nil {
			t.Fatalf("WriteBytes failed: %v", err)
		}
		got, err := s.ReadBytes("lic1")
		if err != nil {
			t.Fatalf("ReadBytes failed: %v", err)
		}
		if string(got) != "envelope" {
			t.Errorf("expected %q, got %q", "envelope", got)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := s.WriteBytes("lic1", []byte("second")); err != nil {
			t.Fatalf("WriteBytes failed: %v", err)
		}
		got, _ := s.ReadBytes("lic1")
		if string(got) != "second" {
			t.Errorf("expected last write to win, got %q", got)
		}
	})

	t.Run("List", func(t *testing.T) {
		s.WriteBytes("lic0", []byte("x")) //nolint:errcheck
		names, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(names) != 2 || names[0] != "lic0" || names[1] != "lic1" {
			t.Errorf("unexpected names: %v", names)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.ReadBytes("missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.Delete("missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on delete, got %v", err)
		}
	})
}

func TestPostgresWatermark(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	w, err := NewWatermark(ctx, pool)
	if err != nil {
		t.Fatalf("NewWatermark failed: %v", err)
	}

	if seen, _ := w.MaxSeen("k"); seen != 0 {
		t.Errorf("expected 0 for unknown key, got %d", seen)
	}
	if err := w.Observe("k", 100); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if err := w.Observe("k", 50); err != nil {
		t.Fatalf("Observe of older value failed: %v", err)
	}
	if seen, _ := w.MaxSeen("k"); seen != 100 {
		t.Errorf("expected 100, got %d", seen)
	}

	// A fresh instance sees the persisted value.
	w2, err := NewWatermark(ctx, pool)
	if err != nil {
		t.Fatalf("NewWatermark failed: %v", err)
	}
	if seen, _ := w2.MaxSeen("k"); seen != 100 {
		t.Errorf("expected persisted 100, got %d", seen)
	}
}
