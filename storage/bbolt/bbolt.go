// Package bbolt provides a BBolt-backed license store.
package bbolt

import (
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/bequest/storage"
)

var licensesBucket = []byte("licenses")

// Store implements storage.Store backed by a BBolt database. All objects live
// in a single bucket keyed by name.
type Store struct {
	db *bbolt.DB
}

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Lister = (*Store)(nil)
)

// NewStore returns a Store backed by the given BBolt database.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(licensesBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating licenses bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a new Store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database, e.g. to share it with a watermark.
func (s *Store) DB() *bbolt.DB {
	return s.db
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ReadBytes(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(licensesBucket).Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%s: %w", name, storage.ErrNotFound)
		}
		// v is only valid for the lifetime of the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Store) WriteBytes(name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(licensesBucket).Put([]byte(name), data)
	})
}

func (s *Store) List() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(licensesBucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	return names, err
}

func (s *Store) Delete(name string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(licensesBucket)
		if b.Get([]byte(name)) == nil {
			return fmt.Errorf("%s: %w", name, storage.ErrNotFound)
		}
		return b.Delete([]byte(name))
	})
}
