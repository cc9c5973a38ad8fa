package jar

import "errors"

var (
	// ErrLoadFailed is returned by New when the persisted cookie file cannot be read.
	ErrLoadFailed = errors.New("jar.load_failed")

	// ErrSaveFailed is reported through the logger when cookies cannot be written.
	ErrSaveFailed = errors.New("jar.save_failed")
)
