package loginsession

import "time"

// Session is the provider's own record of a completed login
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	IDToken      string         `json:"id_token,omitempty"`
	Claims       map[string]any `json:"claims,omitempty"`
	Expiry       time.Time      `json:"expiry"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Expired reports whether the access token is past its expiry at now
func (s Session) Expired(now time.Time) bool {
	return !s.Expiry.IsZero() && now.After(s.Expiry)
}

// Repo stores one session per OAuth client id
type Repo interface {
	Upsert(clientID string, session Session) error
	Get(clientID string) (Session, error)
	Delete(clientID string) error
}
