package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLGetSet(t *testing.T) {
	c := NewTTL[string](time.Minute)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", "one")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", v)
}

func TestTTLExpiry(t *testing.T) {
	c := NewTTL[int](time.Minute)
	clock := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set("a", 42)

	clock = clock.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clock = clock.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	// A fresh Set restarts the expiry.
	c.Set("a", 43)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 43, v)
}

func TestTTLFlush(t *testing.T) {
	c := NewTTL[string](time.Minute)
	c.Set("a", "one")
	c.Set("b", "two")

	c.Flush()

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.False(t, ok)
}
