package schema

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrUnsupported         = errors.ErrorCode("schema_unsupported")
	ErrMalformedDescriptor = errors.ErrorCode("schema_malformed_descriptor")
)
