package orchestrator

import (
	"container/list"
	"sync"

	"github.com/aristath/tradepulse/internal/analytics"
)

// DefaultCacheSize bounds the result cache when no capacity is given.
const DefaultCacheSize = 16

// resultCache is a small LRU keyed by "fingerprint|settingsKey". It
// lets the orchestrator serve a previously computed result without a
// round trip through the pipeline when the same dataset and settings
// come back, such as after toggling a filter off and on.
type resultCache struct {
	mu      sync.Mutex
	cap     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key    string
	result *analytics.Result
	ms     float64
}

func newResultCache(capacity int) *resultCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &resultCache{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func cacheKey(fingerprint, settingsKey string) string {
	return fingerprint + "|" + settingsKey
}

func (c *resultCache) get(key string) (*analytics.Result, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, 0, false
	}
	c.order.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.result, entry.ms, true
}

func (c *resultCache) put(key string, result *analytics.Result, ms float64) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cacheEntry)
		entry.result = result
		entry.ms = ms
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: result, ms: ms})
	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element)
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
