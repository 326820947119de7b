package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("redeem: %w", Validation("code", "code already used"))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.True(t, Is(err, KindValidation))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "code", e.Field)
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestInternal_DeadlineBecomesUnavailable(t *testing.T) {
	err := Internal("catalog fetch failed", fmt.Errorf("sheets: %w", context.DeadlineExceeded))
	assert.Equal(t, KindUnavailable, err.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "VALIDATION: invalid status (field=status)", Validation("status", "invalid status").Error())
	assert.Equal(t, "NOT_FOUND: task not found", NotFound("task not found").Error())
}
