package prometheus

import "errors"

var (
	ErrInvalidConfig = errors.New("prometheus: invalid config")
	ErrMetricExists  = errors.New("prometheus: metric already exists")
)
