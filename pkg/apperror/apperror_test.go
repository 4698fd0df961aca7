package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not found", NotFound("friend request", "r1"), ErrNotFound},
		{"validation", ValidationFailed("to", "cannot friend yourself"), ErrValidation},
		{"conflict", Conflict("request already sent"), ErrConflict},
		{"forbidden", Forbidden("not your request"), ErrForbidden},
		{"transient", Transient("read user", errors.New("connection reset")), ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.kind)
		})
	}
}

func TestTransientKeepsCause(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := Transient("commit batch", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to commit batch: deadline exceeded", err.Error())
	assert.Equal(t, "failed to commit batch", Message(err))
}

func TestMessageFallsBackForPlainErrors(t *testing.T) {
	assert.Equal(t, "request already sent", Message(Conflict("request already sent")))
	assert.Equal(t, "something went wrong, please try again", Message(errors.New("boom")))
}

func TestValidationCarriesField(t *testing.T) {
	err := ValidationFailed("status", "status cannot be empty")
	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "status", appErr.Field)
}
