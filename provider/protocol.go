package provider

// ErrorCode is the "error" value of an OAuth 2.0 error response (RFC 6749 §4.1.2.1, §5.2)
type ErrorCode string

const (
	// ErrorCodeInvalidGrant is returned by the token endpoint for expired or
	// revoked refresh tokens and for reused authorization codes.
	ErrorCodeInvalidGrant ErrorCode = "invalid_grant"

	// ErrorCodeAccessDenied is sent to the redirect URI when the user cancels
	// the login or refuses consent.
	ErrorCodeAccessDenied ErrorCode = "access_denied"

	// ErrorCodeLoginRequired is the OIDC answer to prompt=none without a session
	ErrorCodeLoginRequired ErrorCode = "login_required"
)

// IsCancellation reports whether an authorization error means the user backed out
func (c ErrorCode) IsCancellation() bool {
	return c == ErrorCodeAccessDenied || c == ErrorCodeLoginRequired
}
