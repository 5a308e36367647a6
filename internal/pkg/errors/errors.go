package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrNoSession    = errors.New("no video session loaded")
	ErrNoTranscript = errors.New("transcript is empty")
	ErrFetch        = errors.New("subtitle fetch failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
