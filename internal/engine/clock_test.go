package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockIsMonotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())

	prev := int64(0)
	for i := 0; i < 100; i++ {
		next := c.Next()
		assert.Equal(t, prev+1, next)
		prev = next
	}
	assert.Equal(t, int64(100), c.Current())
}
