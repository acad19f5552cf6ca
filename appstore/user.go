package appstore

import (
	"github.com/jrsteele09/bytefit/internal/utils"
)

// Claim names read from the provider's decoded token
const (
	ClaimSubject           = "sub"
	ClaimPreferredUsername = "preferred_username"
	ClaimName              = "name"
	ClaimGivenName         = "given_name"
	ClaimFamilyName        = "family_name"
	ClaimEmail             = "email"
	ClaimRoles             = "roles"
	// ClaimRealmAccess is where Keycloak nests realm roles
	ClaimRealmAccess = "realm_access"
)

// User is the decoded profile held by the central store
type User struct {
	Subject           string         `json:"sub,omitempty"`
	PreferredUsername string         `json:"preferred_username,omitempty"`
	Name              string         `json:"name,omitempty"`
	GivenName         string         `json:"given_name,omitempty"`
	FamilyName        string         `json:"family_name,omitempty"`
	Email             string         `json:"email,omitempty"`
	Roles             []string       `json:"roles,omitempty"`
	Claims            map[string]any `json:"claims,omitempty"`
}

// UserFromClaims builds a User from a claims map. A nil map gives a nil user.
func UserFromClaims(claims map[string]any) *User {
	if claims == nil {
		return nil
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}

	u := &User{
		Subject:           str(ClaimSubject),
		PreferredUsername: str(ClaimPreferredUsername),
		Name:              str(ClaimName),
		GivenName:         str(ClaimGivenName),
		FamilyName:        str(ClaimFamilyName),
		Email:             str(ClaimEmail),
		Claims:            make(map[string]any, len(claims)),
	}
	if roles, ok := utils.Strings(claims[ClaimRoles]); ok {
		u.Roles = roles
	} else if access, ok := claims[ClaimRealmAccess].(map[string]any); ok {
		u.Roles, _ = utils.Strings(access[ClaimRoles])
	}
	for k, v := range claims {
		u.Claims[k] = v
	}
	return u
}

// HasSubject reports whether u is present and carries a subject id
func (u *User) HasSubject() bool {
	return u != nil && u.Subject != ""
}

// DisplayName picks the friendliest name available
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.PreferredUsername != "":
		return u.PreferredUsername
	case u.Name != "":
		return u.Name
	case u.GivenName != "":
		return u.GivenName
	default:
		return u.Email
	}
}

// Equal compares the identity fields of two users
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	if u.Subject != other.Subject ||
		u.PreferredUsername != other.PreferredUsername ||
		u.Name != other.Name ||
		u.GivenName != other.GivenName ||
		u.FamilyName != other.FamilyName ||
		u.Email != other.Email ||
		len(u.Roles) != len(other.Roles) {
		return false
	}
	for i := range u.Roles {
		if u.Roles[i] != other.Roles[i] {
			return false
		}
	}
	return true
}
