package errors

import (
	"errors"
	"fmt"
)

// Common error types for the ByteFit client
var (
	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrRevocationFailed = errors.New("token revocation failed")
	ErrLoginCancelled   = errors.New("login cancelled")

	// Provider errors
	ErrInvalidState        = errors.New("invalid state parameter")
	ErrInvalidNonce        = errors.New("invalid nonce")
	ErrMissingIDToken      = errors.New("no id token in response")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrNoToken             = errors.New("no token")

	// Activity API errors
	ErrFetchFailed           = errors.New("fetch failed")
	ErrMissingRouteParameter = errors.New("missing route parameter")
	ErrInvalidActivity       = errors.New("invalid activity")
	ErrUnexpectedStatus      = errors.New("unexpected status")

	// Storage errors
	ErrStorageClosed  = errors.New("storage closed")
	ErrSealedValue    = errors.New("sealed value could not be opened")
	ErrInvalidKeySize = errors.New("invalid key size")

	// General errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors, discarding nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}
