package cache

import "errors"

var (
	// ErrNotFound is returned when a key does not exist in the cache.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned when operations are attempted on a closed cache.
	ErrClosed = errors.New("cache: cache is closed")

	// ErrSerializationFailed wraps encode and decode failures of typed helpers.
	ErrSerializationFailed = errors.New("cache: serialization failed")
)
