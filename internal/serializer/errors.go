package serializer

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrUnknownFormat    = errors.ErrorCode("serializer_unknown_format")
	ErrUnsupportedValue = errors.ErrorCode("serializer_unsupported_value")
	ErrEncodeFailed     = errors.ErrorCode("serializer_encode_failed")
)
