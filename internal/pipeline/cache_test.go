package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecobolig/housing-energy-etl/internal/domain"
)

func dsWith(fingerprint string) *domain.Dataset {
	return &domain.Dataset{Fingerprint: fingerprint}
}

func TestDatasetCache(t *testing.T) {
	t.Run("get returns what put stored", func(t *testing.T) {
		c := newDatasetCache(2)
		ds := dsWith("abc")
		c.put("abc", ds)

		got, ok := c.get("abc")
		require.True(t, ok)
		assert.Same(t, ds, got)
	})

	t.Run("miss on unknown key", func(t *testing.T) {
		c := newDatasetCache(2)
		_, ok := c.get("nope")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		c := newDatasetCache(2)
		c.put("a", dsWith("a"))
		c.put("b", dsWith("b"))

		// Touch "a" so "b" is the eviction candidate.
		_, ok := c.get("a")
		require.True(t, ok)

		c.put("c", dsWith("c"))

		_, ok = c.get("b")
		assert.False(t, ok)
		_, ok = c.get("a")
		assert.True(t, ok)
		_, ok = c.get("c")
		assert.True(t, ok)
	})

	t.Run("put on existing key replaces value", func(t *testing.T) {
		c := newDatasetCache(2)
		c.put("a", dsWith("old"))
		replacement := dsWith("new")
		c.put("a", replacement)

		got, ok := c.get("a")
		require.True(t, ok)
		assert.Same(t, replacement, got)
	})

	t.Run("drop removes a key", func(t *testing.T) {
		c := newDatasetCache(2)
		c.put("a", dsWith("a"))
		c.drop("a")

		_, ok := c.get("a")
		assert.False(t, ok)

		// Dropping an absent key is a no-op.
		c.drop("missing")
	})

	t.Run("bounded at max entries", func(t *testing.T) {
		c := newDatasetCache(3)
		for i := 0; i < 10; i++ {
			c.put(fmt.Sprintf("key-%d", i), dsWith("x"))
		}
		assert.Len(t, c.entries, 3)
	})
}
