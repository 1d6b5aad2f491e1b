package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(5*time.Minute), c.Advance(5*time.Minute))

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestSystem_UTC(t *testing.T) {
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
