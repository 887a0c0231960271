package source

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrReadFailed = errors.ErrorCode("source_read_failed")
	ErrTooLarge   = errors.ErrorCode("source_too_large")
	ErrDiscover   = errors.ErrorCode("source_discover_failed")
)
