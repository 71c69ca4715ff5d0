package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmcleod/bequest/storage"
)

func TestMemoryStore(t *testing.T) {
	s := NewStore()

	t.Run("WriteAndRead", func(t *testing.T) {
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

		// Test isolation (cloning)
		got[0] = 'X'
		again, _ := s.ReadBytes("lic1")
		if again[0] != 'e' {
			t.Error("store should not share memory with returned slices")
		}
	})

	t.Run("WriteCopiesInput", func(t *testing.T) {
		buf := []byte("original")
		s.WriteBytes("lic2", buf)
		buf[0] = 'X'
		got, _ := s.ReadBytes("lic2")
		if string(got) != "original" {
			t.Errorf("store should copy written data, got %q", got)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.ReadBytes("missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		names, err := s.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(names) != 2 || names[0] != "lic1" || names[1] != "lic2" {
			t.Errorf("unexpected names: %v", names)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := s.Delete("lic2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := s.Delete("lic2"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("lic-%d", i)
			if err := s.WriteBytes(name, []byte(name)); err != nil {
				t.Errorf("WriteBytes failed: %v", err)
			}
			if _, err := s.ReadBytes(name); err != nil {
				t.Errorf("ReadBytes failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	names, _ := s.List()
	if len(names) != 50 {
		t.Errorf("expected 50 names, got %d", len(names))
	}
}
