package layout

import "codeberg.org/mutker/amdmetrics/internal/errors"

const (
	ErrInvalidDefinition = errors.ErrorCode("layout_invalid_definition")
	ErrReadDefinition    = errors.ErrorCode("layout_read_failed")
	ErrUnknownField      = errors.ErrorCode("layout_unknown_field")
)
