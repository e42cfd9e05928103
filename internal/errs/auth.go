package errs

// AuthReason is the internal cause of an authentication failure.
// It is kept for logs and metrics only and must never reach a client.
type AuthReason string

const (
	ReasonNoToken         AuthReason = "no_token"
	ReasonMalformed       AuthReason = "malformed"
	ReasonBadSignature    AuthReason = "bad_signature"
	ReasonExpired         AuthReason = "expired"
	ReasonUnknownIdentity AuthReason = "unknown_identity"
	ReasonStaleToken      AuthReason = "stale_token"
	ReasonBadCredentials  AuthReason = "bad_credentials"
)

// AuthError carries the reason an identity could not be established.
// It matches ErrUnauthorized so boundaries can collapse every cause into one signal.
type AuthError struct {
	Reason AuthReason
}

// Unauthorized returns an *AuthError for reason.
func Unauthorized(reason AuthReason) *AuthError { return &AuthError{Reason: reason} }

func (e *AuthError) Error() string { return "unauthorized: " + string(e.Reason) }

// Is reports ErrUnauthorized as the equivalent sentinel.
func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }
