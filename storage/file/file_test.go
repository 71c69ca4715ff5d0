package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/bequest/storage"
)

func TestFileStore(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	t.Run("WriteCreatesDirectories", func(t *testing.T) {
		require.NoError(t, s.WriteBytes("deep/nested/lic.dat", []byte("envelope")))

		info, err := os.Stat(filepath.Join(root, "deep", "nested", "lic.dat"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		got, err := s.ReadBytes("deep/nested/lic.dat")
		require.NoError(t, err)
		assert.Equal(t, []byte("envelope"), got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.WriteBytes("lic.dat", []byte("v1")))
		require.NoError(t, s.WriteBytes("lic.dat", []byte("v2")))
		got, err := s.ReadBytes("lic.dat")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := s.ReadBytes("missing.dat")
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InvalidName", func(t *testing.T) {
		require.ErrorIs(t, s.WriteBytes("", []byte("x")), storage.ErrInvalidName)
	})

	t.Run("List", func(t *testing.T) {
		names, err := s.List()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"deep/nested/lic.dat", "lic.dat"}, names)
	})
}

func TestFileStore_NoRoot(t *testing.T) {
	dir := t.TempDir()
	s := NewStore("")
	p := filepath.Join(dir, "sandbox", "lic.dat")

	require.NoError(t, s.WriteBytes(p, []byte("data")))
	got, err := s.ReadBytes(p)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), got)

	_, err = s.List()
	require.Error(t, err)
}

func TestFileStore_ListMissingRoot(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist"))
	names, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
