package exporter

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrRegisterFailed = errors.ErrorCode("exporter_register_failed")
	ErrServeFailed    = errors.ErrorCode("exporter_serve_failed")
)
