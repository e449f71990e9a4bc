package public

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInvalidDay     = errors.New("invalid_day")
)
