package device

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrNotInitialized = errors.ErrorCode("device_not_initialized")
	ErrReadFailed     = errors.ErrorCode("device_read_failed")
)
