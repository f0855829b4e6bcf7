package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQCM(t *testing.T) {
	assert.Equal(t, 10, QCM(true, 10))
	assert.Equal(t, 0, QCM(false, 10))
}

func TestOpen(t *testing.T) {
	t.Run("clamps above max", func(t *testing.T) {
		assert.Equal(t, 10, Open(15, 10))
	})
	t.Run("clamps below zero", func(t *testing.T) {
		assert.Equal(t, 0, Open(-5, 10))
	})
	t.Run("passes through in range", func(t *testing.T) {
		assert.Equal(t, 7, Open(7, 10))
	})
}

func TestClosest(t *testing.T) {
	t.Run("linear falloff", func(t *testing.T) {
		assert.Equal(t, 10, Closest(50, 45, 20, 2))
	})
	t.Run("exact answer gets max", func(t *testing.T) {
		assert.Equal(t, 20, Closest(50, 50, 20, 2))
	})
	t.Run("never negative", func(t *testing.T) {
		assert.Equal(t, 0, Closest(50, 0, 20, 2))
		assert.Equal(t, 0, Closest(50, 1000, 20, 5))
	})
	t.Run("fractional distance floors", func(t *testing.T) {
		assert.Equal(t, 18, Closest(50, 50.75, 20, 2))
	})
}

func TestPredicates(t *testing.T) {
	assert.True(t, QCMCorrect(2, 2))
	assert.False(t, QCMCorrect(1, 2))
	assert.True(t, WithinRange(100, 95, 5))
	assert.False(t, WithinRange(100, 94, 5))
}
