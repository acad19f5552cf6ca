package session

import (
	"github.com/jrsteele09/bytefit/appstore"
	"github.com/jrsteele09/bytefit/provider"
)

type State int

const (
	StateLoggedOut State = iota
	StateLoggedIn
)

func (s State) String() string {
	if s == StateLoggedIn {
		return "logged in"
	}
	return "logged out"
}

// IsAuthenticated is the single authentication policy: any one signal is
// enough. A stored user only counts when it carries a subject id.
func IsAuthenticated(providerToken, persistedToken string, storedUser *appstore.User) bool {
	return providerToken != "" || persistedToken != "" || storedUser.HasSubject()
}

func stateOf(authenticated bool) State {
	if authenticated {
		return StateLoggedIn
	}
	return StateLoggedOut
}

// Inputs is one snapshot of every signal Reconcile looks at
type Inputs struct {
	ProviderToken  string
	Claims         provider.Claims
	PersistedToken string
	// PersistedUser and PersistedUserID are the durable identity copies
	PersistedUser   *appstore.User
	PersistedUserID string
	StoredToken     string
	StoredUser      *appstore.User
	Welcomed        bool
}

type Action int

const (
	// ActionNone leaves everything as it is
	ActionNone Action = iota
	// ActionSignIn adopts the provider's token and claims
	ActionSignIn
	// ActionClear drops the stale local copies because the provider has no token
	ActionClear
)

// Outcome says which writes Reconcile has to make
type Outcome struct {
	Action      Action
	User        *appstore.User
	UpdateStore bool
	Persist     bool
	// Welcome is the name to greet, empty when no greeting is due
	Welcome  string
	Welcomed bool
}

// Decide maps a snapshot onto the writes that bring the local copies in line
// with the provider. Equal inputs after those writes produce ActionNone or a
// sign in with nothing left to update.
func Decide(in Inputs) Outcome {
	switch {
	case in.ProviderToken != "" && in.Claims != nil:
		user := appstore.UserFromClaims(in.Claims)
		out := Outcome{
			Action:      ActionSignIn,
			User:        user,
			UpdateStore: in.StoredToken != in.ProviderToken || !in.StoredUser.Equal(user),
			Persist: in.PersistedToken != in.ProviderToken ||
				in.PersistedUserID != user.Subject ||
				!in.PersistedUser.Equal(user),
			Welcomed:    in.Welcomed,
		}
		if name := in.Claims.PreferredUsername(); !in.Welcomed && name != "" {
			out.Welcome = name
			out.Welcomed = true
		}
		return out

	case in.ProviderToken == "" && (in.StoredUser != nil || in.StoredToken != "" || in.PersistedToken != ""):
		return Outcome{Action: ActionClear}

	default:
		return Outcome{Action: ActionNone, Welcomed: in.Welcomed}
	}
}
