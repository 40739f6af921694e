package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonedSentinelMatchesWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("book: %w", Clone(ErrCapacityExceeded, "slot exam-1 is full"))
	assert.True(t, errors.Is(err, ErrCapacityExceeded))
	assert.False(t, errors.Is(err, ErrDuplicateBooking))
	assert.True(t, HasCode(err, "CAPACITY_EXCEEDED"))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))

	typed := FromError(ErrNotFound)
	assert.Equal(t, http.StatusNotFound, typed.Status)
}
