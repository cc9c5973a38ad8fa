package refresh

import "errors"

var (
	// ErrRenewalFailed is wrapped by every renewal error.
	ErrRenewalFailed = errors.New("refresh: renewal failed")

	// ErrRejected means the server answered with a non-2xx status.
	ErrRejected = errors.New("refresh: renewal rejected by server")

	// ErrMalformedResponse means the server answered 2xx with an unusable body.
	ErrMalformedResponse = errors.New("refresh: malformed renewal response")

	// ErrSessionEnded means the token that expired was already cleared by a
	// failed renewal or a logout, so no new renewal is attempted.
	ErrSessionEnded = errors.New("refresh: session already ended")
)
