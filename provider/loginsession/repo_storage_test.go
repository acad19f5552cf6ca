package loginsession_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/provider/loginsession"
	"github.com/jrsteele09/bytefit/storage/memstore"
	"github.com/stretchr/testify/require"
)

func TestStorageRepo(t *testing.T) {
	shared := memstore.New()
	first := loginsession.NewStorageRepo(shared.Context())
	second := loginsession.NewStorageRepo(shared.Context())

	_, err := first.Get("client")
	require.ErrorIs(t, err, errors.ErrNotFound)

	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, first.Upsert("client", loginsession.Session{
		AccessToken:  "abc",
		RefreshToken: "refresh",
		Claims:       map[string]any{"sub": "u1"},
		Expiry:       expiry,
	}))

	t.Run("other processes see the session", func(t *testing.T) {
		s, err := second.Get("client")
		require.NoError(t, err)
		require.Equal(t, "abc", s.AccessToken)
		require.Equal(t, "refresh", s.RefreshToken)
		require.Equal(t, "u1", s.Claims["sub"])
		require.True(t, expiry.Equal(s.Expiry))
	})

	t.Run("delete removes it everywhere", func(t *testing.T) {
		require.NoError(t, second.Delete("client"))
		_, err := first.Get("client")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("client id is required", func(t *testing.T) {
		require.Error(t, first.Upsert("", loginsession.Session{}))
		_, err := first.Get("")
		require.Error(t, err)
		require.Error(t, first.Delete(""))
	})
}
