package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmcleod/bequest/internal/config"
	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage"
	bboltstorage "github.com/jmcleod/bequest/storage/bbolt"
	"github.com/jmcleod/bequest/storage/file"
	"github.com/jmcleod/bequest/storage/memory"
	"github.com/jmcleod/bequest/storage/postgres"
)

// backend is an opened license store plus its optional watermark.
type backend struct {
	store     storage.Store
	watermark license.Watermark
	closers   []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openBackend opens the configured store. fileRoot is the root of the file
// store: empty for the CLI so that license names are plain paths, the data
// directory for the server.
func openBackend(ctx context.Context, cfg *config.Config, fileRoot string) (*backend, error) {
	b := &backend{}
	needDataDir := cfg.Store == config.StoreBolt || (cfg.Watermark && cfg.Store == config.StoreFile)
	if needDataDir {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	switch cfg.Store {
	case config.StoreFile:
		b.store = file.NewStore(fileRoot)
		if cfg.Watermark {
			w, err := license.NewBoltWatermarkFromFile(filepath.Join(cfg.DataDir, "watermark.db"), nil)
			if err != nil {
				return nil, fmt.Errorf("opening watermark: %w", err)
			}
			b.watermark = w
			b.closers = append(b.closers, w.Close)
		}

	case config.StoreBolt:
		s, err := bboltstorage.NewStoreFromFile(filepath.Join(cfg.DataDir, "licenses.db"), nil)
		if err != nil {
			return nil, fmt.Errorf("opening license storage: %w", err)
		}
		b.store = s
		b.closers = append(b.closers, s.Close)
		if cfg.Watermark {
			w, err := license.NewBoltWatermark(s.DB())
			if err != nil {
				b.Close()
				return nil, err
			}
			b.watermark = w
		}

	case config.StorePostgres:
		s, err := postgres.NewStoreFromDSN(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening license storage: %w", err)
		}
		b.store = s
		b.closers = append(b.closers, func() error { s.Close(); return nil })
		if cfg.Watermark {
			w, err := postgres.NewWatermark(ctx, s.Pool())
			if err != nil {
				b.Close()
				return nil, err
			}
			b.watermark = w
		}

	case config.StoreMemory:
		b.store = memory.NewStore()
		if cfg.Watermark {
			b.watermark = license.NewMemoryWatermark()
		}

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	return b, nil
}

// managerOptions returns the manager options shared by every command.
func managerOptions(cfg *config.Config, b *backend, logger *slog.Logger) ([]license.ManagerOption, error) {
	deriver, err := cfg.KeyDeriver()
	if err != nil {
		return nil, err
	}
	opts := []license.ManagerOption{
		license.WithCodec(newCodec(deriver)),
		license.WithLogger(logger),
	}
	if b.watermark != nil {
		opts = append(opts, license.WithWatermark(b.watermark))
	}
	return opts, nil
}
