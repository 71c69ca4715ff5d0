// Package storage defines where serialized license envelopes are read from
// and written to.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrNotFound is returned when no object exists under the requested name.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for names a backend cannot store.
	ErrInvalidName = errors.New("invalid name")
)

// MaxNameLength bounds object names in every backend.
const MaxNameLength = 1024

// Store reads and writes opaque byte objects by name. Implementations are
// safe for concurrent use. Concurrent writes to the same name are not
// coordinated; the last writer wins.
type Store interface {
	ReadBytes(name string) ([]byte, error)
	WriteBytes(name string, data []byte) error
}

// Lister is implemented by stores that can enumerate their objects.
type Lister interface {
	List() ([]string, error)
}

// ValidateName rejects names that are empty, overly long, not UTF-8 or that
// contain control characters.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: exceeds maximum length of %d", ErrInvalidName, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: contains invalid UTF-8", ErrInvalidName)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: contains control character", ErrInvalidName)
	}
	return nil
}
