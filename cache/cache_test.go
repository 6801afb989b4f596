package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/tenderscope/models"
)

func TestKey(t *testing.T) {
	assert.Equal(t, Key("Facilities Management", "IFM"), Key("  facilities management ", "ifm"))
	assert.NotEqual(t, Key("a", "b", "c"), Key("a", "bc"))
	assert.NotEqual(t, Key("a", "IFM"), Key("a", "FM"))
}

func TestGetSet(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	_, ok := c.Get("k")
	assert.False(t, ok)

	want := models.Relevance{Relevant: true, Confidence: 0.9}
	c.Set("k", want)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestExpiry(t *testing.T) {
	c := New(10, time.Minute)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", models.Relevance{Relevant: true})

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.evictExpired()
	assert.Zero(t, c.Len())
}

func TestCapacity(t *testing.T) {
	c := New(2, time.Hour)
	defer c.Close()

	c.Set("a", models.Relevance{})
	c.Set("b", models.Relevance{})
	c.Set("b", models.Relevance{Relevant: true})
	assert.Equal(t, 2, c.Len())

	c.Set("c", models.Relevance{})
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)

	c.Close()
	c.Close()
}
