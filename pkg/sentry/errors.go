package sentry

import "errors"

var (
	ErrInvalidConfig = errors.New("sentry: invalid config")
	ErrNilConfig     = errors.New("sentry: nil config")
)
