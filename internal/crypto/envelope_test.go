package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

func TestEnvelope_CreateOpenRoundTrip(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt, wrapped, dek, err := env.Create("hunter2")
	require.NoError(t, err)
	require.Len(t, salt, SaltSize)
	require.Len(t, dek, KeySize)

	got, err := env.Open("hunter2", salt, wrapped)
	require.NoError(t, err)
	assert.Equal(t, dek, got)
}

func TestEnvelope_OpenWrongPassword(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt, wrapped, _, err := env.Create("hunter2")
	require.NoError(t, err)

	for _, pw := range []string{"wrong", "hunter", "Hunter2", ""} {
		_, err := env.Open(pw, salt, wrapped)
		assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure, "password %q", pw)
	}
}

func TestEnvelope_OpenRejectsDamage(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt, wrapped, _, err := env.Create("hunter2")
	require.NoError(t, err)

	t.Run("flipped tag byte", func(t *testing.T) {
		bad := append([]byte(nil), wrapped...)
		bad[len(bad)-1] ^= 0xFF
		_, err := env.Open("hunter2", salt, bad)
		assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := env.Open("hunter2", salt, wrapped[:10])
		assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
	})

	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte(nil), wrapped...)
		bad[0] = 9
		_, err := env.Open("hunter2", salt, bad)
		assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
	})

	t.Run("other salt", func(t *testing.T) {
		otherSalt, err := RandomBytes(SaltSize)
		require.NoError(t, err)
		_, err = env.Open("hunter2", otherSalt, wrapped)
		assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
	})
}

func TestEnvelope_CreateIsFreshEachTime(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt1, wrapped1, dek1, err := env.Create("same")
	require.NoError(t, err)
	salt2, wrapped2, dek2, err := env.Create("same")
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, dek1, dek2)
	assert.NotEqual(t, wrapped1, wrapped2)
}

func TestEnvelope_RewrapPreservesKey(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt, wrapped, dek, err := env.Create("old")
	require.NoError(t, err)

	rewrapped, err := env.Rewrap(dek, salt, "new")
	require.NoError(t, err)
	assert.NotEqual(t, wrapped, rewrapped)

	got, err := env.Open("new", salt, rewrapped)
	require.NoError(t, err)
	assert.Equal(t, dek, got)

	_, err = env.Open("old", salt, rewrapped)
	assert.ErrorIs(t, err, vaulterrors.ErrAuthenticationFailure)
}

func TestEnvelope_RewrapSamePasswordUsesNewNonce(t *testing.T) {
	env := NewEnvelope(testKDF)

	salt, wrapped, dek, err := env.Create("pw")
	require.NoError(t, err)

	again, err := env.Rewrap(dek, salt, "pw")
	require.NoError(t, err)
	assert.NotEqual(t, wrapped[1:13], again[1:13], "nonce must not repeat")
}

func TestEnvelope_RewrapValidatesInput(t *testing.T) {
	env := NewEnvelope(testKDF)

	_, err := env.Rewrap([]byte("short"), make([]byte, SaltSize), "pw")
	assert.Error(t, err)

	_, err = env.Rewrap(make([]byte, KeySize), []byte("short"), "pw")
	assert.Error(t, err)
}
