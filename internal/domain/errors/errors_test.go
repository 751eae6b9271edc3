package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		transient  bool
		notFound   bool
		retryable  bool
		statusCode int
	}{
		{
			name:       "transient collaborator failure",
			err:        errors.NewTransientError("outcome store", "connection refused"),
			transient:  true,
			retryable:  true,
			statusCode: 503,
		},
		{
			name:       "wrapped transient failure",
			err:        fmt.Errorf("reading outcomes: %w", errors.NewTransientError("outcome store", "timeout")),
			transient:  true,
			retryable:  true,
			statusCode: 503,
		},
		{
			name:       "not found",
			err:        errors.NewNotFoundError("campaign"),
			notFound:   true,
			statusCode: 404,
		},
		{
			name:       "validation",
			err:        errors.NewValidationError("INVALID_PARAMS", "bad"),
			statusCode: 400,
		},
		{
			name:       "plain error",
			err:        stderrors.New("boom"),
			statusCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, errors.IsTransient(tt.err))
			assert.Equal(t, tt.notFound, errors.IsNotFound(tt.err))
			assert.Equal(t, tt.retryable, errors.IsRetryable(tt.err))
			assert.Equal(t, tt.statusCode, errors.GetStatusCode(tt.err))
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: i/o timeout")
	err := errors.NewTransientError("settings store", "read failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Equal(t, "settings store", err.Details["service"])
}

func TestWrap(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, "ignored"))

	inner := errors.NewNotFoundError("lead")
	wrapped := errors.Wrap(inner, "prioritizing")
	assert.True(t, errors.IsNotFound(wrapped))
	assert.Equal(t, "prioritizing: lead not found", wrapped.Error())

	coded := errors.WrapWithCode(stderrors.New("x"), "SNAPSHOT_WRITE", "failed")
	assert.Equal(t, "SNAPSHOT_WRITE", coded.Code)
	assert.True(t, errors.IsType(coded, errors.ErrorTypeInternal))
}
