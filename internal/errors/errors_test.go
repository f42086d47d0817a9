package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &AppError{Code: ErrCodeTimeout, Message: "lookup timed out", Cause: cause}

	assert.Equal(t, "lookup timed out: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsTimeout(fmt.Errorf("outer: %w", err)))
	assert.Equal(t, ErrCodeTimeout, GetCode(fmt.Errorf("outer: %w", err)))
}

func TestValidationField(t *testing.T) {
	err := fmt.Errorf("upsert: %w", ValidationField("email", "bad"))

	assert.True(t, IsValidation(err))
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "email", GetField(err))
	assert.Equal(t, "bad", ValidationField("email", "bad").Error())
}

func TestGetCode_NonAppError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Empty(t, GetField(errors.New("plain")))
	assert.False(t, IsTimeout(errors.New("plain")))
}
