package tokenstore

import "errors"

var (
	// ErrNoToken is returned by Get when the slot is empty.
	ErrNoToken = errors.New("tokenstore.no_token")

	// ErrEmptyToken is returned by Set when asked to store an empty string.
	ErrEmptyToken = errors.New("tokenstore.empty_token")

	// ErrUnknownDriver is returned by NewFromConfig for unsupported drivers.
	ErrUnknownDriver = errors.New("tokenstore.unknown_driver")

	// ErrStorageFailed wraps backend I/O failures.
	ErrStorageFailed = errors.New("tokenstore.storage_failed")

	ErrFailedToParseRedisURL = errors.New("tokenstore.redis_url_invalid")
	ErrRedisNotReady         = errors.New("tokenstore.redis_not_ready")
	ErrHealthcheckFailed     = errors.New("tokenstore.healthcheck_failed")
)
