package cache

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrSizeMismatch   = errors.ErrorCode("cache_size_mismatch")
	ErrNotInitialized = errors.ErrorCode("cache_not_initialized")
	ErrRefreshFailed  = errors.ErrorCode("cache_refresh_failed")
)
