package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSetEviction(t *testing.T) {
	c := NewLRUCache(2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	c := NewLRUCache(4, 10*time.Millisecond)
	c.Set("k", "v")

	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestDumpRestore(t *testing.T) {
	c := NewLRUCache(4, time.Minute)
	c.Set("x", "design")
	c.Set("y", "review")

	restored := NewLRUCache(4, time.Minute)
	restored.Restore(c.Dump())

	v, ok := restored.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "design", v)
	assert.Equal(t, 2, restored.Len())
}

func TestHashKeyStable(t *testing.T) {
	assert.Equal(t, HashKey("prompt"), HashKey("prompt"))
	assert.NotEqual(t, HashKey("prompt"), HashKey("prompt2"))
}
