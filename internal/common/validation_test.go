package common

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWordCount(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("word ", 10)
	require.NoError(t, ValidateWordCount(text, 5, 20))

	err := ValidateWordCount(text, 11, 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "at least 11")

	err = ValidateWordCount(text, 1, 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 9")
}

func TestTruncateWords(t *testing.T) {
	t.Parallel()

	out, cut := TruncateWords("a  b\nc d", 3)
	assert.True(t, cut)
	assert.Equal(t, "a b c", out)

	out, cut = TruncateWords("a b", 3)
	assert.False(t, cut)
	assert.Equal(t, "a b", out)
}

func TestValidatorCollectsAllFailures(t *testing.T) {
	t.Parallel()

	v := NewValidator().
		Field("transcript", "  ", Required).
		Field("count", 0, IntBetween(1, 50))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	err := v.Err()
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "transcript is required")
	assert.Contains(t, err.Error(), "count must be between 1 and 50")
}
