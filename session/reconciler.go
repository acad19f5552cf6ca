// Package session keeps the provider, the central store and durable storage in
// agreement about whether the user is logged in.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/notify"
	"github.com/jrsteele09/bytefit/provider"
	"github.com/jrsteele09/bytefit/storage"
	"github.com/rs/zerolog"
)

const (
	WelcomeDuration  = 4 * time.Second
	LogoutDuration   = 3 * time.Second
	LogoutMessage    = "Successfully logged out! See you soon!"
	RevocationNotice = "Could not reach the identity provider. You have been logged out on this device."
	LoginMessage     = "Redirecting to login..."
)

// WelcomeMessage is the greeting shown once per login
func WelcomeMessage(name string) string {
	return fmt.Sprintf("Welcome back, %s!", name)
}

// TransitionFunc is called after a reconcile or logout changes the derived state
type TransitionFunc func(from, to State)

type Option func(*Reconciler)

func WithNavigator(n Navigator) Option {
	return func(r *Reconciler) {
		r.navigator = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

func WithTransitionFunc(fn TransitionFunc) Option {
	return func(r *Reconciler) {
		r.onTransition = fn
	}
}

// Reconciler is the only writer of the central store credentials and the
// persisted session keys.
type Reconciler struct {
	provider     provider.Provider
	storage      storage.Store
	store        *appstore.Store
	notifier     notify.Notifier
	navigator    Navigator
	logger       zerolog.Logger
	onTransition TransitionFunc

	mu       sync.Mutex
	welcomed bool
	state    State
}

func New(p provider.Provider, s storage.Store, st *appstore.Store, n notify.Notifier, options ...Option) *Reconciler {
	r := &Reconciler{
		provider:  p,
		storage:   s,
		store:     st,
		notifier:  n,
		navigator: NavigatorFunc(func(string) {}),
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}

	ctx := context.Background()
	r.state = stateOf(r.IsAuthenticated(ctx))
	// A session another context already adopted is not a new login
	if token := r.provider.Token(); token != "" && token == r.persistedToken(ctx) {
		r.welcomed = true
	}
	return r
}

// IsAuthenticated re-derives the answer from the current snapshots
func (r *Reconciler) IsAuthenticated(ctx context.Context) bool {
	return IsAuthenticated(r.provider.Token(), r.persistedToken(ctx), r.store.User())
}

func (r *Reconciler) State(ctx context.Context) State {
	return stateOf(r.IsAuthenticated(ctx))
}

// Reconcile brings the central store and durable storage in line with the
// provider. It never touches the network.
func (r *Reconciler) Reconcile(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := r.store.Snapshot()
	persistedUser, persistedUserID := r.persistedUser(ctx)
	out := Decide(Inputs{
		ProviderToken:   r.provider.Token(),
		Claims:          r.provider.Claims(),
		PersistedToken:  r.persistedToken(ctx),
		PersistedUser:   persistedUser,
		PersistedUserID: persistedUserID,
		StoredToken:     snap.Token,
		StoredUser:      snap.User,
		Welcomed:        r.welcomed,
	})

	var err error
	switch out.Action {
	case ActionSignIn:
		token := r.provider.Token()
		if out.UpdateStore {
			r.store.SetCredentials(appstore.Credentials{Token: token, User: out.User})
		}
		if out.Persist {
			err = r.persist(ctx, token, out.User)
		}
		if out.Welcome != "" {
			r.notifier.Notify(WelcomeMessage(out.Welcome), notify.Success(WelcomeDuration))
		}
		r.welcomed = out.Welcomed

	case ActionClear:
		r.logger.Info().Msg("provider has no token, clearing local session")
		r.store.Logout()
		err = storage.Clear(ctx, r.storage, storage.SessionKeys...)
		r.welcomed = false
	}

	r.transition(ctx)
	if err != nil {
		return fmt.Errorf("[Reconciler Reconcile] %w", err)
	}
	return nil
}

// LogIn hands over to the provider and adopts its result
func (r *Reconciler) LogIn(ctx context.Context) error {
	r.notifier.Notify(LoginMessage, notify.Loading(2*time.Second))
	if err := r.provider.LogIn(ctx); err != nil {
		return fmt.Errorf("[Reconciler LogIn] %w", err)
	}
	return r.Reconcile(ctx)
}

// Logout attempts every step even when an earlier one fails. A provider
// revocation failure leaves the user logged out locally and is only reported.
func (r *Reconciler) Logout(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if err := r.provider.LogOut(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("provider logout failed, clearing local session anyway")
		r.notifier.Notify(RevocationNotice, notify.Info(WelcomeDuration))
		errs = append(errs, err)
	}

	r.store.Logout()

	if err := storage.Clear(ctx, r.storage, storage.SessionKeys...); err != nil {
		r.logger.Error().Err(err).Msg("failed to clear persisted session")
		errs = append(errs, err)
	}

	r.welcomed = false
	r.notifier.Notify(LogoutMessage, notify.Success(LogoutDuration))
	r.navigator.Navigate(ViewLanding)
	r.transition(ctx)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("[Reconciler Logout] %w", err)
	}
	return nil
}

// Run reconciles on every provider change and every token change made by
// another process, until ctx is done. Events are handled one at a time and
// bursts collapse into a single pass over the latest snapshots.
func (r *Reconciler) Run(ctx context.Context) error {
	kick := make(chan struct{}, 1)
	unsubscribe := r.provider.Subscribe(func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	changes, err := r.storage.Watch(ctx, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("[Reconciler Run] watch storage: %w", err)
	}

	r.reconcileAndLog(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-kick:
			r.reconcileAndLog(ctx, "provider")
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			r.logger.Debug().Str("key", change.Key).Bool("present", change.Present).Msg("storage changed in another process")
			r.reconcileAndLog(ctx, "storage")
		}
	}
}

func (r *Reconciler) reconcileAndLog(ctx context.Context, source string) {
	if err := r.Reconcile(ctx); err != nil {
		r.logger.Error().Err(err).Str("source", source).Msg("reconcile failed")
	}
}

// persistedToken treats an unreadable store as empty
func (r *Reconciler) persistedToken(ctx context.Context) string {
	token, ok, err := r.storage.Get(ctx, storage.KeyToken)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read persisted token")
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// persistedUser reads the durable user copy. An undecodable user reads as nil
// so the next sign in overwrites it.
func (r *Reconciler) persistedUser(ctx context.Context) (*appstore.User, string) {
	var user *appstore.User
	if raw, ok, err := r.storage.Get(ctx, storage.KeyUser); err != nil {
		r.logger.Warn().Err(err).Msg("failed to read persisted user")
	} else if ok {
		user = &appstore.User{}
		if err := json.Unmarshal([]byte(raw), user); err != nil {
			r.logger.Warn().Err(err).Msg("persisted user is not valid json")
			user = nil
		}
	}

	userID, _, err := r.storage.Get(ctx, storage.KeyUserID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("failed to read persisted user id")
	}
	return user, userID
}

func (r *Reconciler) persist(ctx context.Context, token string, user *appstore.User) error {
	var errs []error
	if err := r.storage.Set(ctx, storage.KeyToken, token); err != nil {
		errs = append(errs, err)
	}
	if user != nil {
		data, err := json.Marshal(user)
		if err != nil {
			errs = append(errs, err)
		} else if err := r.storage.Set(ctx, storage.KeyUser, string(data)); err != nil {
			errs = append(errs, err)
		}
		if user.Subject != "" {
			if err := r.storage.Set(ctx, storage.KeyUserID, user.Subject); err != nil {
				errs = append(errs, err)
			}
		} else if err := r.storage.Remove(ctx, storage.KeyUserID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// transition must be called with r.mu held
func (r *Reconciler) transition(ctx context.Context) {
	next := r.State(ctx)
	if next == r.state {
		return
	}
	prev := r.state
	r.state = next
	r.logger.Info().Stringer("from", prev).Stringer("to", next).Msg("session state changed")
	if r.onTransition != nil {
		r.onTransition(prev, next)
	}
}
