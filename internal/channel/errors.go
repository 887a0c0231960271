package channel

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrNoFunctionalCores = errors.ErrorCode("channel_no_functional_cores")
)
