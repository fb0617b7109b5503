package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not found", err: NotFound("shop", 7), want: KindNotFound},
		{name: "wrapped validation", err: fmt.Errorf("record: %w", Validation(CodeInvalidAmount, "amount", "must be positive")), want: KindValidation},
		{name: "unauthorized", err: Unauthorized(CodeNotOwner, "nope"), want: KindUnauthorized},
		{name: "conflict", err: Conflict(CodeDuplicate, "exists", errors.New("23505")), want: KindConflict},
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "nil", err: nil, want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsMatchesKindAndCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Validation(CodeInvalidAmount, "amount", "amount must be greater than zero"))

	assert.True(t, errors.Is(err, ErrValidation))
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.False(t, errors.Is(err, ErrNoteRequired))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestErrorMessage(t *testing.T) {
	err := Validation(CodeNoteRequired, "note", "a note is required for manual overrides")
	assert.Equal(t, "a note is required for manual overrides (note)", err.Error())

	cause := errors.New("duplicate key")
	conflict := Conflict(CodeDuplicate, "employee already exists", cause)
	assert.Equal(t, "employee already exists: duplicate key", conflict.Error())
	require.ErrorIs(t, conflict, cause)

	e, ok := As(fmt.Errorf("x: %w", conflict))
	require.True(t, ok)
	assert.Equal(t, CodeDuplicate, e.Code)
}
