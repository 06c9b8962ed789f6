package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRejection(t *testing.T) {
	t.Run("Wrapped rejection is still a rejection", func(t *testing.T) {
		// Given: a rejection wrapped by a caller
		err := fmt.Errorf("failed to make move: %w", ErrCellTaken)

		// Then: it is classified as a rejection and keeps its identity
		assert.True(t, IsRejection(err))
		assert.ErrorIs(t, err, ErrCellTaken)
	})

	t.Run("Plain error is not a rejection", func(t *testing.T) {
		// Given: a storage failure
		err := errors.New("connection refused")

		// Then: it is not classified as a rejection
		assert.False(t, IsRejection(err))
	})
}

func TestAsRejection(t *testing.T) {
	// Given: a wrapped rejection
	err := fmt.Errorf("join: %w", ErrCannotJoinOwnGame)

	// When: extracting it
	rejection, ok := AsRejection(err)

	// Then: code and message are available to the caller
	require.True(t, ok)
	assert.Equal(t, "cannot_join_own_game", rejection.Code)
	assert.Equal(t, "you cannot join your own game", rejection.Message)
}
