package session_test

import (
	"fmt"
	"testing"

	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/provider"
	"github.com/jrsteele09/bytefit/session"
	"github.com/stretchr/testify/require"
)

func TestIsAuthenticated(t *testing.T) {
	user := &appstore.User{Subject: "u1"}
	for mask := 0; mask < 8; mask++ {
		providerToken, persistedToken := "", ""
		var storedUser *appstore.User
		if mask&1 != 0 {
			providerToken = "p"
		}
		if mask&2 != 0 {
			persistedToken = "s"
		}
		if mask&4 != 0 {
			storedUser = user
		}

		t.Run(fmt.Sprintf("provider=%t persisted=%t user=%t", mask&1 != 0, mask&2 != 0, mask&4 != 0), func(t *testing.T) {
			require.Equal(t, mask != 0, session.IsAuthenticated(providerToken, persistedToken, storedUser))
		})
	}

	t.Run("user without subject does not count", func(t *testing.T) {
		require.False(t, session.IsAuthenticated("", "", &appstore.User{PreferredUsername: "bob"}))
	})
}

func TestDecide(t *testing.T) {
	claims := provider.Claims{"sub": "u1", "preferred_username": "alice"}

	t.Run("all absent is a no-op", func(t *testing.T) {
		out := session.Decide(session.Inputs{})
		require.Equal(t, session.ActionNone, out.Action)
		require.False(t, out.Welcomed)
	})

	t.Run("first sign in writes everything and welcomes", func(t *testing.T) {
		out := session.Decide(session.Inputs{ProviderToken: "t1", Claims: claims})
		require.Equal(t, session.ActionSignIn, out.Action)
		require.True(t, out.UpdateStore)
		require.True(t, out.Persist)
		require.Equal(t, "alice", out.Welcome)
		require.True(t, out.Welcomed)
		require.Equal(t, "u1", out.User.Subject)
	})

	t.Run("settled sign in writes nothing", func(t *testing.T) {
		out := session.Decide(session.Inputs{
			ProviderToken:   "t1",
			Claims:          claims,
			PersistedToken:  "t1",
			PersistedUser:   appstore.UserFromClaims(claims),
			PersistedUserID: "u1",
			StoredToken:     "t1",
			StoredUser:      appstore.UserFromClaims(claims),
			Welcomed:        true,
		})
		require.Equal(t, session.ActionSignIn, out.Action)
		require.False(t, out.UpdateStore)
		require.False(t, out.Persist)
		require.Empty(t, out.Welcome)
		require.True(t, out.Welcomed)
	})

	t.Run("identity change under the same token is persisted", func(t *testing.T) {
		next := provider.Claims{"sub": "u2", "preferred_username": "alice"}
		base := session.Inputs{
			ProviderToken:   "t1",
			Claims:          next,
			PersistedToken:  "t1",
			PersistedUser:   appstore.UserFromClaims(next),
			PersistedUserID: "u2",
			StoredToken:     "t1",
			StoredUser:      appstore.UserFromClaims(next),
			Welcomed:        true,
		}

		stale := base
		stale.PersistedUserID = "u1"
		require.True(t, session.Decide(stale).Persist)

		stale = base
		stale.PersistedUser = appstore.UserFromClaims(claims)
		require.True(t, session.Decide(stale).Persist)

		stale = base
		stale.PersistedUser = nil
		require.True(t, session.Decide(stale).Persist)

		require.False(t, session.Decide(base).Persist)
	})

	t.Run("no welcome without a preferred username", func(t *testing.T) {
		out := session.Decide(session.Inputs{ProviderToken: "t1", Claims: provider.Claims{"sub": "u1"}})
		require.Empty(t, out.Welcome)
		require.False(t, out.Welcomed)
	})

	t.Run("token without claims is left alone", func(t *testing.T) {
		out := session.Decide(session.Inputs{ProviderToken: "t1"})
		require.Equal(t, session.ActionNone, out.Action)
	})

	t.Run("provider absent clears stale copies", func(t *testing.T) {
		for name, in := range map[string]session.Inputs{
			"persisted token": {PersistedToken: "old"},
			"stored user":     {StoredUser: &appstore.User{Subject: "u1"}},
			"stored token":    {StoredToken: "old"},
		} {
			t.Run(name, func(t *testing.T) {
				in.Welcomed = true
				out := session.Decide(in)
				require.Equal(t, session.ActionClear, out.Action)
				require.False(t, out.Welcomed)
			})
		}
	})
}

func TestState_String(t *testing.T) {
	require.Equal(t, "logged in", session.StateLoggedIn.String())
	require.Equal(t, "logged out", session.StateLoggedOut.String())
}
