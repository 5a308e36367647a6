package ai

import "errors"

var (
	ErrUnavailable       = errors.New("ai provider unavailable")
	ErrCacheUnsupported  = errors.New("model does not support cached content")
	ErrCacheTooSmall     = errors.New("document too small for cached content")
	ErrMissingCredential = errors.New("ai provider credential missing")
	ErrEmptyResponse     = errors.New("empty ai response")

	// ErrCacheRejected means the provider no longer accepts a cached content id.
	ErrCacheRejected = errors.New("cached content rejected")
)
