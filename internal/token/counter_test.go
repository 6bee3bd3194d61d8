package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCounter(t *testing.T) *Counter {
	t.Helper()
	counter, err := NewCounter(DefaultModel)
	if err != nil {
		t.Skipf("tokenizer unavailable in this environment: %v", err)
	}
	return counter
}

func TestCounterCount(t *testing.T) {
	counter := newTestCounter(t)

	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)

	// Counting is deterministic.
	text := "The quick brown fox jumps over the lazy dog."
	assert.Equal(t, counter.Count(text), counter.Count(text))
}

func TestCounterFits(t *testing.T) {
	counter := newTestCounter(t)

	text := "one two three four five"
	total := counter.Count(text)

	assert.True(t, counter.Fits(text, total))
	assert.True(t, counter.Fits(text, total+1))
	assert.False(t, counter.Fits(text, total-1))
	assert.True(t, counter.Fits("", 0))
}

func TestCounterTruncate(t *testing.T) {
	counter := newTestCounter(t)

	text := "one two three four five six seven eight nine ten"
	total := counter.Count(text)
	require.Greater(t, total, 4)

	truncated := counter.Truncate(text, 4)
	assert.LessOrEqual(t, counter.Count(truncated), 4)
	assert.NotEqual(t, text, truncated)

	// A budget at or above the full count returns the text unchanged.
	assert.Equal(t, text, counter.Truncate(text, total))
	assert.Equal(t, text, counter.Truncate(text, total+10))

	assert.Equal(t, "", counter.Truncate(text, 0))
}

func TestNewCounterUnknownModel(t *testing.T) {
	_, err := NewCounter("not-a-real-model")
	assert.Error(t, err)
}
