// Package server is the loopback HTTP receiver that the identity provider
// redirects the browser to at the end of a login.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CallbackReceiver finishes the login that is waiting for the redirect
type CallbackReceiver interface {
	Complete(ctx context.Context, state, code string) error
	Fail(state string, err error)
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func WithEnv(env string) Option {
	return func(s *Server) {
		s.env = env
	}
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	receiver CallbackReceiver
	logger   zerolog.Logger
}

func New(receiver CallbackReceiver, options ...Option) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		receiver: receiver,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("[Server ListenAndServe] %w", err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Debug().Str("addr", ln.Addr().String()).Msg("callback server listening")
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("[Server Serve] %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("[Server Serve] shutdown: %w", err)
		}
		return nil
	}
}

// ListenAddr is the host:port the redirect URL points at
func ListenAddr(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("[server ListenAddr] %w", err)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("[server ListenAddr] redirect url %q has no port", redirectURL)
	}
	return u.Host, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func (s *Server) logError(method, path, error string) {
	s.logger.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
