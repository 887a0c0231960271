package decoder

import (
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"codeberg.org/mutker/amdmetrics/internal/schema"
)

const (
	ErrChannelUnavailable = errors.ErrorCode("decoder_channel_unavailable")
	ErrSizeMismatch       = errors.ErrorCode("decoder_size_mismatch")

	// ErrMalformedDescriptor is shared with the registry so both report
	// out-of-bounds descriptors the same way.
	ErrMalformedDescriptor = schema.ErrMalformedDescriptor
)
