// Package storetest holds the behavioural contract every service.RecordStore
// implementation must satisfy.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vaulterrors "github.com/atinyakov/pwkeeper/internal/errors"
	"github.com/atinyakov/pwkeeper/internal/service"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) service.RecordStore

// Run exercises a RecordStore produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("vault row absent", func(t *testing.T) {
		store := newStore(t)
		rec, err := store.ReadVaultRow(context.Background())
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("vault row upsert", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.WriteVaultRow(ctx, []byte("salt-1"), []byte("wrapped-1")))
		first, err := store.ReadVaultRow(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.NotEmpty(t, first.ID)
		assert.Equal(t, []byte("salt-1"), first.Salt)
		assert.Equal(t, []byte("wrapped-1"), first.WrappedDEK)

		require.NoError(t, store.WriteVaultRow(ctx, []byte("salt-1"), []byte("wrapped-2")))
		second, err := store.ReadVaultRow(ctx)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID, "rewriting keeps the single vault row")
		assert.Equal(t, []byte("wrapped-2"), second.WrappedDEK)

		require.NoError(t, store.DeleteVaultRow(ctx))
		gone, err := store.ReadVaultRow(ctx)
		require.NoError(t, err)
		assert.Nil(t, gone)
		require.NoError(t, store.DeleteVaultRow(ctx))
	})

	t.Run("secret lifecycle", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		missing, err := store.ReadSecret(ctx, "github")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, store.InsertSecret(ctx, "github", "enc-info", "enc-secret"))
		rec, err := store.ReadSecret(ctx, "github")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "github", rec.Name)
		assert.Equal(t, "enc-info", rec.EncInfo)
		assert.Equal(t, "enc-secret", rec.EncSecret)

		err = store.InsertSecret(ctx, "github", "other", "other")
		assert.ErrorIs(t, err, vaulterrors.ErrAlreadyExists)
		rec, err = store.ReadSecret(ctx, "github")
		require.NoError(t, err)
		assert.Equal(t, "enc-secret", rec.EncSecret)

		require.NoError(t, store.DeleteSecret(ctx, "github"))
		assert.ErrorIs(t, store.DeleteSecret(ctx, "github"), vaulterrors.ErrNotFound)
		rec, err = store.ReadSecret(ctx, "github")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		require.NoError(t, store.InsertSecret(ctx, "Mail", "a", "a"))
		require.NoError(t, store.InsertSecret(ctx, "mail", "b", "b"))

		rec, err := store.ReadSecret(ctx, "Mail")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "a", rec.EncInfo)
	})

	t.Run("list sorted and clear", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		names, err := store.ListSecretNames(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		for _, n := range []string{"b", "B", "a", "aa"} {
			require.NoError(t, store.InsertSecret(ctx, n, "i", "s"))
		}
		names, err = store.ListSecretNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"B", "a", "aa", "b"}, names)

		require.NoError(t, store.WriteVaultRow(ctx, []byte("s"), []byte("w")))
		require.NoError(t, store.ClearAllSecrets(ctx))
		names, err = store.ListSecretNames(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		rec, err := store.ReadVaultRow(ctx)
		require.NoError(t, err)
		assert.NotNil(t, rec, "clearing secrets keeps the vault row")
	})

	t.Run("unicode names round trip", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		names := []string{"почта", "日本語", "emoji 🔑", "tab\tname"}
		for _, n := range names {
			require.NoError(t, store.InsertSecret(ctx, n, "i-"+n, "s-"+n))
		}
		for _, n := range names {
			rec, err := store.ReadSecret(ctx, n)
			require.NoError(t, err)
			require.NotNil(t, rec, n)
			assert.Equal(t, n, rec.Name)
			assert.Equal(t, "s-"+n, rec.EncSecret)
		}
		assert.ErrorIs(t, store.InsertSecret(ctx, "почта", "x", "x"), vaulterrors.ErrAlreadyExists)
		require.NoError(t, store.DeleteSecret(ctx, "日本語"))

		listed, err := store.ListSecretNames(ctx)
		require.NoError(t, err)
		assert.Len(t, listed, len(names)-1)
	})

	t.Run("reset vault", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		resetter, ok := store.(service.VaultResetter)
		if !ok {
			t.Skip("store has no atomic reset")
		}

		require.NoError(t, store.WriteVaultRow(ctx, []byte("s"), []byte("w")))
		require.NoError(t, store.InsertSecret(ctx, "x", "i", "s"))
		require.NoError(t, resetter.ResetVault(ctx))

		rec, err := store.ReadVaultRow(ctx)
		require.NoError(t, err)
		assert.Nil(t, rec)
		names, err := store.ListSecretNames(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		require.NoError(t, resetter.ResetVault(ctx), "resetting an empty store succeeds")
	})
}
