package authflow

import "time"

// State is the PKCE material kept between building the authorization URL and
// receiving the redirect
type State struct {
	CodeVerifier string
	Nonce        string
	CreatedAt    time.Time
}

type Repo interface {
	Upsert(state string, flow *State) error
	Get(state string) (*State, error)
	Delete(state string) error
	DeleteExpired(before time.Time) int
}
