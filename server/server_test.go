package server_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/server"
	"github.com/stretchr/testify/require"
)

type fakeReceiver struct {
	mu        sync.Mutex
	completed []string
	failed    map[string]error
	err       error
}

func (f *fakeReceiver) Complete(_ context.Context, state, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, state+":"+code)
	return f.err
}

func (f *fakeReceiver) Fail(state string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed == nil {
		f.failed = make(map[string]error)
	}
	f.failed[state] = err
}

func setupTestFixture(t *testing.T) (*fakeReceiver, *server.Server) {
	t.Helper()
	receiver := &fakeReceiver{}
	return receiver, server.New(receiver, server.WithEnv("DEV"))
}

func TestOAuthCallbackHandler(t *testing.T) {
	t.Run("completes the login", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?state=s1&code=c1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "You are logged in")
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
		require.Equal(t, []string{"s1:c1"}, receiver.completed)
	})

	t.Run("form post response mode", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		body := url.Values{"state": {"s2"}, "code": {"c2"}}.Encode()
		req := httptest.NewRequest(http.MethodPost, server.RouteCallback, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, []string{"s2:c2"}, receiver.completed)
	})

	t.Run("authorization error fails the login", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?state=s1&error=access_denied&error_description=denied", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.ErrorIs(t, receiver.failed["s1"], errors.ErrLoginCancelled)
		require.Empty(t, receiver.completed)
	})

	t.Run("missing parameters", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?state=s1", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, receiver.completed)
	})

	t.Run("invalid state is a bad request", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		receiver.err = errors.ErrInvalidState
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?state=s1&code=c1", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "Login failed")
	})

	t.Run("exchange failure is a server error", func(t *testing.T) {
		receiver, s := setupTestFixture(t)
		receiver.err = errors.ErrFetchFailed
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteCallback+"?state=s1&code=c1", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	_, s := setupTestFixture(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteHealthz, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestServer_Serve(t *testing.T) {
	_, s := setupTestFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + server.RouteHealthz)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestListenAddr(t *testing.T) {
	addr, err := server.ListenAddr("http://localhost:5173/callback")
	require.NoError(t, err)
	require.Equal(t, "localhost:5173", addr)

	_, err = server.ListenAddr("http://localhost/callback")
	require.Error(t, err)
}
