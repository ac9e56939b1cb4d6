package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/pwkeeper/internal/crypto"
	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
)

func newSession(t *testing.T, password string) (*Session, *crypto.Envelope, []byte, []byte) {
	t.Helper()
	env := crypto.NewEnvelope(crypto.PBKDF2{Iterations: 1000})
	salt, wrapped, dek, err := env.Create(password)
	require.NoError(t, err)
	s, err := New(dek, salt, env)
	require.NoError(t, err)
	return s, env, salt, wrapped
}

func TestNew_WipesSourceKey(t *testing.T) {
	env := crypto.NewEnvelope(crypto.PBKDF2{Iterations: 1000})
	_, _, dek, err := env.Create("pw")
	require.NoError(t, err)

	_, err = New(dek, make([]byte, crypto.SaltSize), env)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, crypto.KeySize), dek)
}

func TestNew_RejectsBadKey(t *testing.T) {
	env := crypto.NewEnvelope(crypto.PBKDF2{Iterations: 1000})
	_, err := New([]byte("short"), nil, env)
	assert.Error(t, err)
}

func TestEncryptDecryptField(t *testing.T) {
	s, _, _, _ := newSession(t, "pw")

	token, err := s.EncryptField("alice@example.com")
	require.NoError(t, err)
	assert.NotContains(t, token, "alice")

	got, err := s.DecryptField(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)
}

func TestDecryptField_CrossVaultToken(t *testing.T) {
	a, _, _, _ := newSession(t, "pw")
	b, _, _, _ := newSession(t, "pw")

	token, err := a.EncryptField("secret")
	require.NoError(t, err)

	_, err = b.DecryptField(token)
	assert.ErrorIs(t, err, vaulterrors.ErrDecryptionFailure)
}

func TestRotatePassword_KeepsRecordsReadable(t *testing.T) {
	s, env, salt, _ := newSession(t, "old")

	token, err := s.EncryptField("secret")
	require.NoError(t, err)

	wrapped, err := s.RotatePassword("new")
	require.NoError(t, err)

	dek, err := env.Open("new", salt, wrapped)
	require.NoError(t, err)
	assert.True(t, s.MatchesKey(dek))

	reopened, err := New(dek, salt, env)
	require.NoError(t, err)
	got, err := reopened.DecryptField(token)
	require.NoError(t, err)
	assert.Equal(t, "secret", got)
}

func TestMatchesKey(t *testing.T) {
	s, env, salt, wrapped := newSession(t, "pw")

	dek, err := env.Open("pw", salt, wrapped)
	require.NoError(t, err)
	assert.True(t, s.MatchesKey(dek))
	assert.False(t, s.MatchesKey(make([]byte, crypto.KeySize)))
}

func TestDestroy(t *testing.T) {
	s, _, _, _ := newSession(t, "pw")
	s.Destroy()

	_, err := s.EncryptField("x")
	assert.ErrorIs(t, err, vaulterrors.ErrNotAuthenticated)
	_, err = s.DecryptField("x")
	assert.ErrorIs(t, err, vaulterrors.ErrNotAuthenticated)
	_, err = s.RotatePassword("x")
	assert.ErrorIs(t, err, vaulterrors.ErrNotAuthenticated)
	assert.False(t, s.MatchesKey(make([]byte, crypto.KeySize)))

	var nilSession *Session
	nilSession.Destroy()
}
