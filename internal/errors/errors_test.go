package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_Error(t *testing.T) {
	err := NewAPIError("dataservice", 403, "forbidden")
	assert.Contains(t, err.Error(), "dataservice")
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "forbidden")
}

func TestAPIError_WithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	err := &APIError{Service: "dataservice", StatusCode: 500, Message: "fail", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewAPIError("ds", 429, "rate limit")))
	assert.True(t, IsRetryable(NewAPIError("ds", 502, "bad gateway")))
	assert.True(t, IsRetryable(NewAPIError("ds", 503, "unavailable")))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrUnavailable)))

	assert.False(t, IsRetryable(NewAPIError("ds", 400, "bad request")))
	assert.False(t, IsRetryable(NewAPIError("ds", 404, "not found")))
	assert.False(t, IsRetryable(ErrInvalidInput))
	assert.False(t, IsRetryable(ErrCommitRejected))
}

func TestRemoteError(t *testing.T) {
	inner := NewAPIError("ds", 500, "boom")
	err := NewRemoteError("save-allocation", map[string]string{"allocation_id": "a1"}, inner)

	var remote *RemoteError
	assert.True(t, errors.As(err, &remote))
	assert.Equal(t, "save-allocation", remote.Op)
	assert.Equal(t, "a1", remote.Context["allocation_id"])
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "save-allocation")

	assert.Nil(t, NewRemoteError("fetch-projects", nil, nil))
}

func TestInvalid(t *testing.T) {
	err := Invalid("slot index %d out of range", 20)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "slot index 20 out of range")
}
