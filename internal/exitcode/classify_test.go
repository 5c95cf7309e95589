package exitcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRetriableSet(t *testing.T) {
	for _, code := range []int{128, 129, 130, 131, 134, 136, 137, 139, 141, 143} {
		assert.Equal(t, Retriable, Classify(code), "code %d", code)
	}
}

func TestClassifyNonRetriable(t *testing.T) {
	for _, code := range []int{0, 1, 2, 127, 132, 144, 255, -1} {
		assert.Equal(t, NonRetriable, Classify(code), "code %d", code)
	}
}

func TestCounterCapsConsecutiveRetries(t *testing.T) {
	var c Counter

	for i := 0; i < RetryCap; i++ {
		assert.True(t, c.Observe(137), "retry %d should be allowed", i+1)
	}
	assert.Equal(t, RetryCap, c.Consecutive())

	// The next retriable exit is reclassified as fatal.
	assert.False(t, c.Observe(137))
}

func TestCounterResetsOnCleanExit(t *testing.T) {
	var c Counter

	assert.True(t, c.Observe(139))
	assert.True(t, c.Observe(139))

	assert.False(t, c.Observe(0))
	assert.Equal(t, 0, c.Consecutive())

	// Full budget available again.
	for i := 0; i < RetryCap; i++ {
		assert.True(t, c.Observe(143))
	}
}

func TestCounterTimeoutNotRetriable(t *testing.T) {
	var c Counter
	assert.False(t, c.Observe(-1))
}
