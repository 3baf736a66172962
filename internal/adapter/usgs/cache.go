package usgs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/creek-flow-service/internal/domain"
	"github.com/couchcryptid/creek-flow-service/internal/observability"
)

// CachedReader wraps a GaugeReader with an in-memory LRU cache over historical
// window fetches. Past windows are immutable upstream, so a non-empty series
// can be reused across runs that share lag targets. Latest-value queries are
// never cached.
type CachedReader struct {
	inner   domain.GaugeReader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedReader creates a cache decorator around a gauge reader.
func NewCachedReader(inner domain.GaugeReader, maxEntries int, metrics *observability.Metrics) *CachedReader {
	return &CachedReader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedReader) FetchSeries(ctx context.Context, siteID string, start, end time.Time) []domain.Observation {
	key := fmt.Sprintf("%s|%d|%d", siteID, start.Unix(), end.Unix())
	if series, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return series
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	series := c.inner.FetchSeries(ctx, siteID, start, end)
	// Only cache non-empty series so transient failures can be retried.
	if len(series) > 0 {
		c.cache.put(key, series)
	}
	return series
}

// FetchLatest passes through; the newest reading changes every few minutes.
func (c *CachedReader) FetchLatest(ctx context.Context, siteID string) domain.Reading {
	return c.inner.FetchLatest(ctx, siteID)
}

// lruCache is a simple thread-safe LRU cache for observation series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Observation
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
