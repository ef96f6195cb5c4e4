package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("connection refused")

	t.Run("direct code", func(t *testing.T) {
		err := New(CodeNotFound, "place not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", New(CodeInvalidInput, "place name is required"))
		assert.True(t, HasCode(err, CodeInvalidInput))
		assert.Equal(t, CodeInvalidInput, CodeOf(err))
	})

	t.Run("nested coded errors", func(t *testing.T) {
		inner := Wrap(base, CodeUnavailable, "backend down")
		outer := Wrap(inner, CodeInternal, "ingest failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnavailable))
		assert.True(t, errors.Is(outer, base))
		assert.Equal(t, CodeInternal, CodeOf(outer))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(base, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(base))
		assert.False(t, Is(nil, CodeInternal))
	})
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "not_found: missing", New(CodeNotFound, "missing").Error())
	assert.Equal(t, "timeout: slow: boom", Wrap(errors.New("boom"), CodeTimeout, "slow").Error())
}
