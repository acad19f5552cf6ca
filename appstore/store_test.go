package appstore_test

import (
	"testing"

	"github.com/jrsteele09/bytefit/appstore"
	"github.com/stretchr/testify/require"
)

func TestStore_SetCredentialsAndLogout(t *testing.T) {
	s := appstore.New()
	require.Nil(t, s.User())
	require.Empty(t, s.Token())

	s.SetCredentials(appstore.Credentials{Token: "abc", User: &appstore.User{Subject: "u1"}})
	require.Equal(t, "abc", s.Token())
	require.Equal(t, "u1", s.User().Subject)

	snap := s.Snapshot()
	require.Equal(t, "abc", snap.Token)

	s.Logout()
	require.Nil(t, s.User())
	require.Empty(t, s.Token())
}

func TestUserFromClaims(t *testing.T) {
	t.Run("nil claims", func(t *testing.T) {
		require.Nil(t, appstore.UserFromClaims(nil))
	})

	t.Run("fields", func(t *testing.T) {
		u := appstore.UserFromClaims(map[string]any{
			"sub":                "u1",
			"preferred_username": "bob",
			"email":              "bob@example.com",
			"roles":              []any{"athlete", 7, "coach"},
		})
		require.Equal(t, "u1", u.Subject)
		require.Equal(t, "bob", u.PreferredUsername)
		require.Equal(t, []string{"athlete", "coach"}, u.Roles)
		require.Equal(t, "bob", u.Claims["preferred_username"])
		require.True(t, u.HasSubject())
	})

	t.Run("keycloak realm roles", func(t *testing.T) {
		u := appstore.UserFromClaims(map[string]any{
			"sub":          "u1",
			"realm_access": map[string]any{"roles": []any{"offline_access", "user"}},
		})
		require.Equal(t, []string{"offline_access", "user"}, u.Roles)
	})

	t.Run("no subject", func(t *testing.T) {
		u := appstore.UserFromClaims(map[string]any{"name": "Bob"})
		require.False(t, u.HasSubject())
		require.Equal(t, "Bob", u.DisplayName())
	})
}

func TestUser_Equal(t *testing.T) {
	a := &appstore.User{Subject: "u1", Roles: []string{"x"}}
	b := &appstore.User{Subject: "u1", Roles: []string{"x"}}
	c := &appstore.User{Subject: "u2"}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(nil))

	var n *appstore.User
	require.True(t, n.Equal(nil))
	require.False(t, n.HasSubject())
	require.Empty(t, n.DisplayName())
}
