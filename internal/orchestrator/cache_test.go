package orchestrator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/tradepulse/internal/analytics"
)

func TestCacheHitAndMiss(t *testing.T) {
	c := newResultCache(4)

	_, _, ok := c.get("a|s")
	assert.False(t, ok)

	res := &analytics.Result{TradeCount: 5}
	c.put("a|s", res, 12.5)

	got, ms, ok := c.get("a|s")
	require.True(t, ok)
	assert.Same(t, res, got)
	assert.Equal(t, 12.5, ms)
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newResultCache(2)
	c.put("a", &analytics.Result{TradeCount: 1}, 1)
	c.put("b", &analytics.Result{TradeCount: 2}, 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, _, ok := c.get("a")
	require.True(t, ok)

	c.put("c", &analytics.Result{TradeCount: 3}, 3)
	assert.Equal(t, 2, c.len())

	_, _, ok = c.get("b")
	assert.False(t, ok)
	_, _, ok = c.get("a")
	assert.True(t, ok)
	_, _, ok = c.get("c")
	assert.True(t, ok)
}

func TestCacheIgnoresNilResults(t *testing.T) {
	c := newResultCache(4)
	c.put("a", nil, 1)
	assert.Equal(t, 0, c.len())
}

func TestCacheUpdateExistingKey(t *testing.T) {
	c := newResultCache(4)
	c.put("a", &analytics.Result{TradeCount: 1}, 1)
	c.put("a", &analytics.Result{TradeCount: 9}, 9)

	got, ms, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 9, got.TradeCount)
	assert.Equal(t, 9.0, ms)
	assert.Equal(t, 1, c.len())
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := newResultCache(0)
	for i := 0; i < DefaultCacheSize+5; i++ {
		c.put(fmt.Sprintf("k%d", i), &analytics.Result{TradeCount: i}, float64(i))
	}
	assert.Equal(t, DefaultCacheSize, c.len())
}

func TestCacheClear(t *testing.T) {
	c := newResultCache(4)
	c.put("a", &analytics.Result{TradeCount: 1}, 1)
	c.clear()
	assert.Equal(t, 0, c.len())
	_, _, ok := c.get("a")
	assert.False(t, ok)
}
