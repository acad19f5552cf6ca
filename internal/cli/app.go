// Package cli holds the bytefit cobra commands and the wiring behind them.
package cli

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/jrsteele09/bytefit/activities"
	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/internal/config"
	"github.com/jrsteele09/bytefit/internal/logger"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/provider"
	"github.com/jrsteele09/bytefit/provider/loginsession"
	"github.com/jrsteele09/bytefit/server"
	"github.com/jrsteele09/bytefit/session"
	"github.com/jrsteele09/bytefit/storage"
	"github.com/jrsteele09/bytefit/storage/filestore"
	"github.com/jrsteele09/bytefit/storage/memstore"
	"github.com/jrsteele09/bytefit/storage/redisstore"
	"github.com/rs/zerolog"
)

const sessionFile = "session.json"

// App is everything a command needs
type App struct {
	Out        io.Writer
	Logger     zerolog.Logger
	Storage    storage.Store
	Store      *appstore.Store
	Notifier   notify.Notifier
	Provider   provider.Provider
	Reconciler *session.Reconciler
	Activities *activities.Client

	// Receiver takes the login redirect; nil when the provider needs none
	Receiver     server.CallbackReceiver
	RedirectURL  string
	LoginTimeout time.Duration
	Env          string

	// OnTransition is told about every login and logout the reconciler sees
	OnTransition session.TransitionFunc
}

// Builder creates the App for a command run
type Builder func(ctx context.Context, out io.Writer) (*App, error)

// NewApp wires the production collaborators from configuration
func NewApp(ctx context.Context, out io.Writer) (*App, error) {
	c, err := config.New()
	if err != nil {
		return nil, err
	}
	log := logger.Setup(c.GetEnv(), c.GetLogLevel(), nil)

	store, err := newStorage(c)
	if err != nil {
		return nil, err
	}

	pkce, err := provider.NewFromConfig(ctx, c,
		provider.WithSessionRepo(loginsession.NewStorageRepo(store)),
		provider.WithOpener(printOpener(out)),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	appStore := appstore.New()
	app := &App{
		Out:          out,
		Logger:       log,
		Storage:      store,
		Store:        appStore,
		Activities:   activities.NewClientFromConfig(c, appStore),
		Notifier:     notify.Multi{notify.NewTerminal(out), notify.NewLog(logger.Component("notify"))},
		Provider:     pkce,
		Receiver:     pkce,
		RedirectURL:  c.GetRedirectURL(),
		LoginTimeout: c.GetLoginTimeout(),
		Env:          c.GetEnv(),
	}
	app.Wire()
	return app, nil
}

// Wire builds the reconciler on top of the collaborators
func (a *App) Wire() {
	a.Reconciler = session.New(a.Provider, a.Storage, a.Store, a.Notifier,
		session.WithLogger(a.Logger.With().Str("component", "session").Logger()),
		session.WithTransitionFunc(a.transition),
	)
}

func (a *App) transition(from, to session.State) {
	if a.OnTransition != nil {
		a.OnTransition(from, to)
	}
}

func (a *App) Close() error {
	return a.Storage.Close()
}

func newStorage(c config.Config) (storage.Store, error) {
	switch c.GetStorageBackend() {
	case config.StorageMemory:
		return memstore.New().Context(), nil
	case config.StorageRedis:
		return redisstore.NewFromURL(c.GetRedisURL(), c.GetStorageNamespace())
	case config.StorageFile:
		var opts []filestore.Option
		if raw := c.GetStorageKey(); raw != "" {
			key, err := hex.DecodeString(raw)
			if err != nil {
				return nil, fmt.Errorf("[cli newStorage] storage key: %w", err)
			}
			opts = append(opts, filestore.WithSealKey(key))
		}
		return filestore.New(filepath.Join(c.GetDataFolder(), sessionFile), opts...)
	default:
		return nil, fmt.Errorf("[cli newStorage] unknown storage backend %q", c.GetStorageBackend())
	}
}

func printOpener(out io.Writer) provider.Opener {
	return func(authURL string) error {
		_, err := fmt.Fprintf(out, "\nOpen this URL in your browser to log in:\n\n  %s\n\n", authURL)
		return err
	}
}
