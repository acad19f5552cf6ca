package session_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/provider"
	"github.com/jrsteele09/bytefit/provider/providerfake"
	"github.com/jrsteele09/bytefit/session"
	"github.com/jrsteele09/bytefit/storage"
	"github.com/jrsteele09/bytefit/storage/memstore"
	"github.com/stretchr/testify/require"
)

type recordingNavigator struct {
	mu    sync.Mutex
	views []string
}

func (n *recordingNavigator) Navigate(view string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.views = append(n.views, view)
}

func (n *recordingNavigator) Views() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.views...)
}

type testFixture struct {
	provider    *providerfake.FakeProvider
	shared      *memstore.Shared
	storage     *memstore.Store
	store       *appstore.Store
	notes       *notify.Recorder
	navigator   *recordingNavigator
	reconciler  *session.Reconciler
	transitions chan [2]session.State
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		provider:    providerfake.NewFakeProvider(),
		shared:      memstore.New(),
		store:       appstore.New(),
		notes:       &notify.Recorder{},
		navigator:   &recordingNavigator{},
		transitions: make(chan [2]session.State, 16),
	}
	f.storage = f.shared.Context()
	f.reconciler = session.New(f.provider, f.storage, f.store, f.notes,
		session.WithNavigator(f.navigator),
		session.WithTransitionFunc(func(from, to session.State) {
			f.transitions <- [2]session.State{from, to}
		}),
	)
	return f
}

func (f *testFixture) persisted(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.storage.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

func welcomes(r *notify.Recorder) []notify.Notification {
	var out []notify.Notification
	for _, n := range r.BySeverity(notify.SeveritySuccess) {
		if strings.HasPrefix(n.Message, "Welcome back") {
			out = append(out, n)
		}
	}
	return out
}

func TestReconciler_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("sign in mirrors the provider into the store and storage", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice", "email": "a@example.com"})

		require.NoError(t, f.reconciler.Reconcile(ctx))

		require.Equal(t, "t1", f.store.Token())
		require.Equal(t, "u1", f.store.User().Subject)

		token, ok := f.persisted(t, storage.KeyToken)
		require.True(t, ok)
		require.Equal(t, "t1", token)

		userID, ok := f.persisted(t, storage.KeyUserID)
		require.True(t, ok)
		require.Equal(t, "u1", userID)

		raw, ok := f.persisted(t, storage.KeyUser)
		require.True(t, ok)
		var stored appstore.User
		require.NoError(t, json.Unmarshal([]byte(raw), &stored))
		require.Equal(t, "a@example.com", stored.Email)

		require.Equal(t, [2]session.State{session.StateLoggedOut, session.StateLoggedIn}, <-f.transitions)
	})

	t.Run("idempotent with unchanged inputs", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})

		require.NoError(t, f.reconciler.Reconcile(ctx))
		first := f.store.User()
		count := len(f.notes.All())

		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.Same(t, first, f.store.User())
		require.Len(t, f.notes.All(), count)
	})

	t.Run("claims changing under the same token update storage", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))

		f.provider.Set("t1", provider.Claims{"sub": "u2", "preferred_username": "carol"})
		require.NoError(t, f.reconciler.Reconcile(ctx))

		require.Equal(t, "u2", f.store.User().Subject)
		userID, ok := f.persisted(t, storage.KeyUserID)
		require.True(t, ok)
		require.Equal(t, "u2", userID)

		raw, ok := f.persisted(t, storage.KeyUser)
		require.True(t, ok)
		var stored appstore.User
		require.NoError(t, json.Unmarshal([]byte(raw), &stored))
		require.Equal(t, "carol", stored.PreferredUsername)
	})

	t.Run("welcome fires once", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"preferred_username": "alice"})

		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.NoError(t, f.reconciler.Reconcile(ctx))

		w := welcomes(f.notes)
		require.Len(t, w, 1)
		require.Equal(t, "Welcome back, alice!", w[0].Message)
		require.Equal(t, notify.Success(session.WelcomeDuration), w[0].Options)
	})

	t.Run("welcome fires again after logout and a new login", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.NoError(t, f.reconciler.Logout(ctx))

		f.provider.Set("t2", provider.Claims{"preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))

		require.Len(t, welcomes(f.notes), 2)
	})

	t.Run("welcome waits for a preferred username", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1"})
		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.Empty(t, welcomes(f.notes))

		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.Len(t, welcomes(f.notes), 1)
	})

	t.Run("a session adopted by another context is not welcomed again", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))

		second := session.New(f.provider, f.shared.Context(), appstore.New(), f.notes)
		require.NoError(t, second.Reconcile(ctx))
		require.Len(t, welcomes(f.notes), 1)
		require.Equal(t, session.StateLoggedIn, second.State(ctx))
	})

	t.Run("stale copies are cleared when the provider has no token", func(t *testing.T) {
		f := setupTestFixture(t)
		other := f.shared.Context()
		require.NoError(t, other.Set(ctx, storage.KeyToken, "old"))
		require.NoError(t, other.Set(ctx, storage.KeyUserID, "u1"))
		f.store.SetCredentials(appstore.Credentials{Token: "old", User: &appstore.User{Subject: "u1"}})
		require.True(t, f.reconciler.IsAuthenticated(ctx))

		require.NoError(t, f.reconciler.Reconcile(ctx))

		require.Nil(t, f.store.User())
		require.Empty(t, f.store.Token())
		_, ok := f.persisted(t, storage.KeyToken)
		require.False(t, ok)
		_, ok = f.persisted(t, storage.KeyUserID)
		require.False(t, ok)
		require.False(t, f.reconciler.IsAuthenticated(ctx))
		require.Equal(t, session.StateLoggedOut, f.reconciler.State(ctx))
		require.Empty(t, f.notes.All())
	})

	t.Run("nothing present does nothing", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.reconciler.Reconcile(ctx))
		require.Empty(t, f.notes.All())
		require.Len(t, f.transitions, 0)
	})
}

func TestReconciler_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears every signal and lands on the landing view", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))

		require.NoError(t, f.reconciler.Logout(ctx))

		require.Equal(t, 1, f.provider.LogOutCalls())
		require.Empty(t, f.provider.Token())
		require.Nil(t, f.store.User())
		for _, key := range storage.SessionKeys {
			_, ok := f.persisted(t, key)
			require.False(t, ok, key)
		}
		require.Equal(t, []string{session.ViewLanding}, f.navigator.Views())

		last := f.notes.All()[len(f.notes.All())-1]
		require.Equal(t, session.LogoutMessage, last.Message)
		require.Equal(t, notify.Success(session.LogoutDuration), last.Options)
	})

	t.Run("revocation failure still clears local state", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.Set("t1", provider.Claims{"sub": "u1", "preferred_username": "alice"})
		require.NoError(t, f.reconciler.Reconcile(ctx))
		f.provider.FailLogOut(errors.ErrRevocationFailed)

		err := f.reconciler.Logout(ctx)
		require.ErrorIs(t, err, errors.ErrRevocationFailed)

		_, ok := f.persisted(t, storage.KeyToken)
		require.False(t, ok)
		require.Nil(t, f.store.User())
		require.False(t, f.reconciler.IsAuthenticated(ctx))

		var messages []string
		for _, n := range f.notes.All() {
			messages = append(messages, n.Message)
		}
		require.Contains(t, messages, session.RevocationNotice)
		require.Contains(t, messages, session.LogoutMessage)
		require.Equal(t, []string{session.ViewLanding}, f.navigator.Views())
	})
}

func TestReconciler_LogIn(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts the provider login", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.NextLogIn("abc", provider.Claims{"sub": "u1", "preferred_username": "bob"}, nil)

		require.NoError(t, f.reconciler.LogIn(ctx))
		require.Equal(t, "abc", f.store.Token())
		require.Len(t, f.notes.BySeverity(notify.SeverityLoading), 1)
		require.Len(t, welcomes(f.notes), 1)
	})

	t.Run("provider failure is returned", func(t *testing.T) {
		f := setupTestFixture(t)
		f.provider.NextLogIn("", nil, errors.ErrLoginCancelled)

		require.ErrorIs(t, f.reconciler.LogIn(ctx), errors.ErrLoginCancelled)
		require.False(t, f.reconciler.IsAuthenticated(ctx))
	})
}

func TestReconciler_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	require.False(t, f.reconciler.IsAuthenticated(ctx))

	f.provider.Set("abc", provider.Claims{"preferred_username": "bob", "sub": "u1"})
	require.NoError(t, f.reconciler.Reconcile(ctx))

	require.True(t, f.reconciler.IsAuthenticated(ctx))
	w := welcomes(f.notes)
	require.Len(t, w, 1)
	require.Contains(t, w[0].Message, "bob")
	require.Equal(t, "u1", f.store.User().Subject)

	f.notes.Reset()
	require.NoError(t, f.reconciler.Logout(ctx))

	require.False(t, f.reconciler.IsAuthenticated(ctx))
	_, ok := f.persisted(t, storage.KeyToken)
	require.False(t, ok)

	var logouts int
	for _, n := range f.notes.All() {
		if n.Message == session.LogoutMessage {
			logouts++
		}
	}
	require.Equal(t, 1, logouts)
}

func TestReconciler_Run(t *testing.T) {
	f := setupTestFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.reconciler.Run(ctx) }()

	t.Run("provider changes are reconciled", func(t *testing.T) {
		f.provider.Set("abc", provider.Claims{"sub": "u1", "preferred_username": "bob"})
		require.Eventually(t, func() bool { return f.store.Token() == "abc" }, time.Second, 5*time.Millisecond)

		f.provider.Clear()
		require.Eventually(t, func() bool { return f.store.User() == nil }, time.Second, 5*time.Millisecond)
	})

	t.Run("writes from another process are reconciled", func(t *testing.T) {
		other := f.shared.Context()
		require.NoError(t, other.Set(context.Background(), storage.KeyToken, "stale"))

		require.Eventually(t, func() bool {
			_, ok := f.persisted(t, storage.KeyToken)
			return !ok
		}, time.Second, 5*time.Millisecond)
		require.False(t, f.reconciler.IsAuthenticated(context.Background()))
	})

	cancel()
	require.NoError(t, <-done)
}
