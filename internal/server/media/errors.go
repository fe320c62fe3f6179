package media

import "errors"

// Errors the media route maps onto HTTP statuses before any body is written:
// ErrInvalidKey is 400, ErrWrongMode is 404 and ErrInvalidRange is 416.
var (
	ErrInvalidKey   = errors.New("invalid media key")
	ErrWrongMode    = errors.New("media route is only available in local mode")
	ErrInvalidRange = errors.New("invalid range")
)
