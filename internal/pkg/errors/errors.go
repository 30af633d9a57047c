package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrNoTranscript = errors.New("no transcript available")
	ErrRateLimited  = errors.New("upstream rate limited")
	ErrCredential   = errors.New("missing or invalid credential")
	ErrEmptyLibrary = errors.New("no indexed content")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNoTranscript(err error) bool {
	return errors.Is(err, ErrNoTranscript)
}

func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

func IsCredential(err error) bool {
	return errors.Is(err, ErrCredential)
}
