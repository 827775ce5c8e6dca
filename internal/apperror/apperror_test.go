package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentinelClassification(t *testing.T) {
	launch := LaunchFailed("/usr/bin/nope", errors.New("no such file"))
	attach := AttachTimedOut(2 * time.Second)
	timeout := ExecutionTimedOut(50 * time.Millisecond)

	assert.True(t, errors.Is(launch, ErrLaunch))
	assert.True(t, errors.Is(attach, ErrDebugAttach))
	assert.True(t, errors.Is(timeout, ErrExecutionTimeout))

	// The kinds are distinct from each other.
	assert.False(t, errors.Is(launch, ErrDebugAttach))
	assert.False(t, errors.Is(attach, ErrExecutionTimeout))
	assert.False(t, errors.Is(timeout, ErrLaunch))
}

func TestWrappingSurvivesFmtErrorf(t *testing.T) {
	inner := LaunchFailed("sam", errors.New("permission denied"))
	outer := fmt.Errorf("starting run: %w", inner)

	assert.True(t, errors.Is(outer, ErrLaunch))

	var appErr *AppError
	assert.True(t, errors.As(outer, &appErr))
	assert.Contains(t, appErr.Message, "sam")
	assert.Contains(t, appErr.Message, "permission denied")
}

func TestValidationCarriesField(t *testing.T) {
	err := ValidationFailed("handler", "handler reference is required")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "handler", err.Field)
	assert.Equal(t, "handler reference is required", err.Error())
}
