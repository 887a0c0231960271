package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/amdmetrics/internal/errors"
	"github.com/stretchr/testify/assert"
)

const errTest = errors.ErrorCode("test_code")

func TestErrorMessage(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, "Invalid argument provided", errFactory.New(errors.ErrInvalidArgument).Error())
	assert.Equal(t, "test_code", errFactory.New(errTest).Error())
	assert.Equal(t, "custom", errFactory.WithMessage(errTest, "custom").Error())
	assert.Equal(t, "test_code: 42", errFactory.WithData(errTest, 42).Error())
	assert.Equal(t, "test_code: boom", errFactory.Wrap(errTest, fmt.Errorf("boom")).Error())
}

func TestHasCode(t *testing.T) {
	errFactory := errors.New()

	inner := errFactory.New(errTest)
	outer := errFactory.Wrap(errors.ErrOperationFailed, inner)
	wrapped := fmt.Errorf("context: %w", outer)

	assert.True(t, errors.HasCode(wrapped, errors.ErrOperationFailed))
	assert.True(t, errors.HasCode(wrapped, errTest))
	assert.False(t, errors.HasCode(wrapped, errors.ErrTimeout))
	assert.False(t, errors.HasCode(nil, errTest))
	assert.False(t, errors.HasCode(fmt.Errorf("plain"), errTest))
}

func TestCodeOf(t *testing.T) {
	errFactory := errors.New()

	assert.Equal(t, errTest, errors.CodeOf(fmt.Errorf("x: %w", errFactory.New(errTest))))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(fmt.Errorf("plain")))
}

func TestWithDataKeepsCode(t *testing.T) {
	err := errors.New().New(errTest).WithData("detail")

	assert.Equal(t, errTest, err.Code())
	assert.Equal(t, "detail", err.GetData())
}

func TestSharedCodesHaveMessages(t *testing.T) {
	codes := []errors.ErrorCode{
		errors.ErrInternal, errors.ErrInvalidArgument,
		errors.ErrInvalidConfig, errors.ErrBindFlags, errors.ErrReadConfig,
		errors.ErrInvalidInterval, errors.ErrInvalidMaxAge, errors.ErrInvalidFormat,
		errors.ErrInvalidLogLevel, errors.ErrInitFailed, errors.ErrShutdownFailed,
		errors.ErrAlreadyRunning, errors.ErrInitApp, errors.ErrNoDevices,
		errors.ErrDeviceFailed, errors.ErrOperationFailed, errors.ErrTimeout,
	}

	for _, code := range codes {
		assert.NotEqual(t, string(code), errors.GetErrorMessage(code), code)
	}
}
