package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCacheGetSet(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("a", 1)
	cache.Set("b", "two")

	val, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, val)

	val, ok = cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "two", val)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	cache := NewLRUCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("key-%d", i), i)
	}

	// Touch key-0 so key-1 becomes the eviction candidate
	_, ok := cache.Get("key-0")
	assert.True(t, ok)

	cache.Set("key-3", 3)

	_, ok = cache.Get("key-1")
	assert.False(t, ok)
	_, ok = cache.Get("key-0")
	assert.True(t, ok)
	assert.Equal(t, 3, cache.Len())
}

func TestLRUCacheTTL(t *testing.T) {
	cache := NewLRUCache(10, 20*time.Millisecond)

	cache.Set("a", 1)
	_, ok := cache.Get("a")
	assert.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = cache.Get("a")
	assert.False(t, ok)
}

func TestLRUCacheDeleteAndClear(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Delete("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)

	cache.Clear()
	_, ok = cache.Get("b")
	assert.False(t, ok)
	assert.Zero(t, cache.Len())
}

func TestLRUCacheOverwrite(t *testing.T) {
	cache := NewLRUCache(10, time.Minute)

	cache.Set("a", 1)
	cache.Set("a", 2)

	val, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, val)
	assert.Equal(t, 1, cache.Len())
}
