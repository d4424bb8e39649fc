package auth

import "errors"

var (
	ErrMissingCredential = &AuthenticationError{Reason: "missing credential"}
	ErrInvalidCredential = &AuthenticationError{Reason: "invalid credential"}
)

// AuthenticationError rejects a connection attempt. It is terminal: the
// client has to obtain a new credential and reconnect.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return "authentication error: " + e.Reason + ": " + e.Err.Error()
	}

	return "authentication error: " + e.Reason
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is matches any AuthenticationError with the same reason, so wrapped
// failures still compare equal to the package sentinels.
func (e *AuthenticationError) Is(target error) bool {
	var t *AuthenticationError
	if !errors.As(target, &t) {
		return false
	}

	return t.Reason == e.Reason
}

func invalidCredential(err error) error {
	return &AuthenticationError{Reason: ErrInvalidCredential.Reason, Err: err}
}
