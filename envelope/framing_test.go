package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraming_RoundTrip(t *testing.T) {
	c := NewCodec()
	for _, expiry := range []time.Time{{}, time.Now().Add(time.Hour)} {
		e := mustEncode(t, c, "secret", Credentials{Password: "pw"}, expiry)
		data := Marshal(e)

		parsed, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, e, parsed)
		assert.Equal(t, data, Marshal(parsed))

		bin, err := e.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, data, bin)
	}
}

func TestFraming_Layout(t *testing.T) {
	e := mustEncode(t, NewCodec(), "secret", Credentials{HardwareID: "aa:bb"}, time.Time{})
	data := Marshal(e)

	assert.Equal(t, []byte("BQLC"), data[:4])
	assert.Equal(t, byte(FormatVersion), data[4])
	assert.Equal(t, e.Checksum(), data[5:5+ChecksumSize])

	body := data[headerSize:]
	assert.Equal(t, byte(0), body[0], "immortal license has an absent expiry tag")
	assert.Equal(t, byte(0), body[1], "requires_password")
	assert.Equal(t, byte(1), body[2], "requires_hardware_id")
	assert.Equal(t, e.canonicalFields(), body)
}

func TestFraming_Rejects(t *testing.T) {
	e := mustEncode(t, NewCodec(), "secret", Credentials{Password: "pw"}, time.Now().Add(time.Hour))
	valid := Marshal(e)

	mutate := func(fn func([]byte) []byte) []byte {
		cp := append([]byte(nil), valid...)
		return fn(cp)
	}

	cases := []struct {
		name string
		data []byte
		want error
	}{
		{"Empty", nil, ErrTruncated},
		{"Garbage", []byte("this is not a license file at all, just some text"), ErrInvalidMagic},
		{"HeaderOnly", valid[:headerSize], ErrTruncated},
		{"BadMagic", mutate(func(b []byte) []byte { b[0] = 'X'; return b }), ErrInvalidMagic},
		{"FutureVersion", mutate(func(b []byte) []byte { b[4] = 2; return b }), ErrUnsupportedVersion},
		{"BadExpiryTag", mutate(func(b []byte) []byte { b[headerSize] = 7; return b }), ErrMalformed},
		{"Truncated", valid[:len(valid)-1], ErrTruncated},
		{"TrailingData", append(append([]byte(nil), valid...), 0x00), ErrTrailingData},
		{"HugeLength", mutate(func(b []byte) []byte {
			copy(b[headerSize+1:], []byte{0xFF, 0xFF, 0xFF, 0xFF})
			return b
		}), ErrTruncated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(tc.data)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestFraming_RejectsNonCanonicalBooleans(t *testing.T) {
	e := mustEncode(t, NewCodec(), "secret", Credentials{Password: "pw"}, time.Time{})
	data := Marshal(e)
	// immortal: tag at headerSize, requires_password right after it
	data[headerSize+1] = 2
	_, err := Unmarshal(data)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestFraming_RejectsShortIV(t *testing.T) {
	short := &Envelope{
		requiresPassword: true,
		encryptedPayload: []byte("cipher"),
		iv:               []byte("short"),
	}
	short.seal()
	_, err := Unmarshal(Marshal(short))
	require.ErrorIs(t, err, ErrMalformed)
}
