package apiclient

import "errors"

var (
	ErrInvalidBaseURL = errors.New("apiclient: invalid base url")

	// ErrInvalidRequest means the request could not be built or its body encoded.
	ErrInvalidRequest = errors.New("apiclient: invalid request")

	// ErrTransport wraps network level failures. No HTTP response exists.
	ErrTransport = errors.New("apiclient: transport failure")

	// ErrTokenUnavailable means the token store could not be read.
	ErrTokenUnavailable = errors.New("apiclient: access token unavailable")

	// ErrInvalidResponse means a response body could not be decoded.
	ErrInvalidResponse = errors.New("apiclient: invalid response body")
)
