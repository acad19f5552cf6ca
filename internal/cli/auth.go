package cli

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/server"
	"github.com/jrsteele09/bytefit/session"
	"github.com/spf13/cobra"
)

const (
	defaultLoginTimeout = 5 * time.Minute
	refreshSkew         = 30 * time.Second
	refreshInterval     = 15 * time.Second
	sessionExpired      = "Your session has expired. Please log in again."
)

// refresher is implemented by providers that can renew their token silently
type refresher interface {
	AutoRefresh(ctx context.Context, skew, interval time.Duration) error
}

// expirer is implemented by providers that know when their token expires
type expirer interface {
	Expiry() time.Time
}

func newLoginCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to ByteFit",
		Long: `Log in through the ByteFit identity provider.

A browser URL is printed; after you sign in the provider redirects back to a
local callback address and bytefit stores the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if a.Reconciler.IsAuthenticated(cmd.Context()) {
				fmt.Fprintf(a.Out, "Already logged in as %s\n", a.Store.User().DisplayName())
				return nil
			}
			displayAppname(appName)
			return a.LogIn(cmd.Context())
		},
	}
}

func newLogoutCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of ByteFit on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.Reconciler.Logout(cmd.Context()); err != nil {
				// Local state is already cleared; a failed revocation is only reported
				a.Logger.Warn().Err(err).Msg("logout completed with errors")
			}
			return nil
		},
	}
}

func newStatusCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			state := a.Reconciler.State(cmd.Context())
			fmt.Fprintf(a.Out, "Status:   %s\n", state)
			if state != session.StateLoggedIn {
				fmt.Fprintln(a.Out, "Use 'bytefit login' to authenticate.")
				return nil
			}

			if user := a.Store.User(); user != nil {
				fmt.Fprintf(a.Out, "User:     %s\n", user.DisplayName())
				fmt.Fprintf(a.Out, "User ID:  %s\n", user.Subject)
				if user.Email != "" {
					fmt.Fprintf(a.Out, "Email:    %s\n", user.Email)
				}
			}
			if e, ok := a.Provider.(expirer); ok && !e.Expiry().IsZero() {
				fmt.Fprintf(a.Out, "Expires:  %s\n", e.Expiry().Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

func newWatchCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session in sync until interrupted",
		Long: `Keep this device's session in agreement with the identity provider and with
other bytefit processes sharing the same storage. Logins and logouts are
printed as they happen, and the access token is refreshed before it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			ctx := cmd.Context()
			displayAppname(appName)

			a.OnTransition = func(from, to session.State) {
				fmt.Fprintf(a.Out, "%s: %s -> %s\n", time.Now().Format(time.Kitchen), from, to)
			}
			fmt.Fprintf(a.Out, "Watching session (Ctrl+C to stop), currently %s\n", a.Reconciler.State(ctx))

			if r, ok := a.Provider.(refresher); ok {
				go a.keepFresh(ctx, r)
			}
			return a.Reconciler.Run(ctx)
		},
	}
}

// LogIn runs the callback receiver, when there is one, for the duration of
// the provider login.
func (a *App) LogIn(ctx context.Context) error {
	timeout := a.LoginTimeout
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if a.Receiver != nil {
		addr, err := server.ListenAddr(a.RedirectURL)
		if err != nil {
			return err
		}
		// Listen before the URL is shown so the redirect cannot beat us
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("[App LogIn] callback listener: %w", err)
		}

		srv := server.New(a.Receiver,
			server.WithEnv(a.Env),
			server.WithLogger(a.Logger.With().Str("component", "server").Logger()),
		)
		serverCtx, stop := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- srv.Serve(serverCtx, ln) }()
		defer func() {
			stop()
			if err := <-done; err != nil {
				a.Logger.Warn().Err(err).Msg("callback server stopped with error")
			}
		}()
	}

	return a.Reconciler.LogIn(ctx)
}

// keepFresh renews the token until ctx ends and starts a new login when the
// refresh token itself has expired.
func (a *App) keepFresh(ctx context.Context, r refresher) {
	for ctx.Err() == nil {
		err := r.AutoRefresh(ctx, refreshSkew, refreshInterval)
		if !errors.Is(err, errors.ErrRefreshTokenExpired) {
			return
		}
		a.Notifier.Notify(sessionExpired, notify.Info(4*time.Second))
		if err := a.LogIn(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("login after refresh expiry failed")
		}
	}
}
