package crypto

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	key := DeriveKey("pw1", "")
	assert.Len(t, key, KeySize)
	assert.Equal(t, key, DeriveKey("pw1", ""), "derivation must be deterministic")

	t.Run("MatchesSaltedConcatenation", func(t *testing.T) {
		want := sha256.Sum256([]byte(saltPrefix + "pw1" + saltSeparator + "aa:bb" + saltSuffix))
		assert.Equal(t, want[:], DeriveKey("pw1", "aa:bb"))
	})

	t.Run("EmptyCredentialsStillDerive", func(t *testing.T) {
		assert.Len(t, DeriveKey("", ""), KeySize)
	})

	t.Run("CredentialsAreNotInterchangeable", func(t *testing.T) {
		assert.NotEqual(t, DeriveKey("secret", ""), DeriveKey("", "secret"))
		assert.NotEqual(t, DeriveKey("pw1", ""), DeriveKey("pw2", ""))
		assert.NotEqual(t, DeriveKey("pw", "aa:bb"), DeriveKey("pw", "aa:bc"))
	})

	t.Run("HardwareIDCaseInsensitive", func(t *testing.T) {
		assert.Equal(t, DeriveKey("", "AA:BB:CC:DD:EE:FF"), DeriveKey("", " aa:bb:cc:dd:ee:ff\n"))
	})

	t.Run("PasswordNormalised", func(t *testing.T) {
		assert.Equal(t, DeriveKey("caf\u00e9", ""), DeriveKey("cafe\u0301", ""))
	})
}

func TestArgon2idDeriver(t *testing.T) {
	d, err := NewArgon2idDeriver(KDFProfileInteractive)
	require.NoError(t, err)

	key := d.DeriveKey("pw", "aa:bb")
	assert.Len(t, key, KeySize)
	assert.Equal(t, key, d.DeriveKey("pw", "aa:bb"))
	assert.NotEqual(t, key, d.DeriveKey("pw", "aa:bc"))
	assert.NotEqual(t, key, DeriveKey("pw", "aa:bb"), "hardened and default derivers must not agree")

	_, err = NewArgon2idDeriver("nonexistent")
	require.Error(t, err)
}
