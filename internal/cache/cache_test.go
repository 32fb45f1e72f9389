package cache

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"
)

func TestCache_ExpiresByTTL(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewWithClock[string, int](5*time.Minute, clock)

	c.Set("a", 1)

	v, ok := c.Get("a")
	check.True(t, ok)
	check.Equal(t, 1, v)

	now = now.Add(4 * time.Minute)
	_, ok = c.Get("a")
	check.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	check.False(t, ok)
	check.Equal(t, 0, c.Len())
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewWithClock[string, int](5*time.Minute, clock)

	c.Set("a", 1)
	now = now.Add(4 * time.Minute)
	c.Set("a", 2)
	now = now.Add(4 * time.Minute)

	v, ok := c.Get("a")
	check.True(t, ok)
	check.Equal(t, 2, v)
}

func TestCache_DeleteAndLen(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	check.Equal(t, 2, c.Len())

	c.Delete("a")
	check.Equal(t, 1, c.Len())

	_, ok := c.Get("a")
	check.False(t, ok)
}
