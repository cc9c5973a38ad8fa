package session

import "errors"

var (
	// ErrInvalidConfig is returned when the manager cannot be assembled.
	ErrInvalidConfig = errors.New("session.invalid_config")

	// ErrLoginRejected is logged when the server refuses the credentials.
	ErrLoginRejected = errors.New("session.login_rejected")

	// ErrLoginResponse is logged when the login response is unusable.
	ErrLoginResponse = errors.New("session.login_response_invalid")
)
