package apperrors

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrNoIdentity     = errors.New("no signed-in user")
	ErrMalformedKey   = errors.New("malformed bucket key")
	ErrUnsupportedURL = errors.New("unsupported url scheme")
	ErrInvalidToken   = errors.New("invalid identity token")
	ErrQueueClosed    = errors.New("queue closed")
)
