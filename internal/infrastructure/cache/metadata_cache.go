// Package cache holds a per-instance LRU of document metadata with TTL,
// wrapping hashicorp/golang-lru/v2/expirable. It sits in front of the
// metadata store on the download path, where the same document is often
// fetched many times in a short window.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/campusops/docvault/internal/core/domain"
)

type MetadataCache struct {
	lru    *expirable.LRU[string, *domain.Document]
	hits   prometheus.Counter
	misses prometheus.Counter
}

type Options struct {
	MaxEntries int
	TTL        time.Duration
	Hits       prometheus.Counter
	Misses     prometheus.Counter
}

func New(options Options) *MetadataCache {
	maxEntries := options.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	ttl := options.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MetadataCache{
		lru:    expirable.NewLRU[string, *domain.Document](maxEntries, nil, ttl),
		hits:   options.Hits,
		misses: options.Misses,
	}
}

func (c *MetadataCache) Get(id string) (*domain.Document, bool) {
	doc, ok := c.lru.Get(id)
	if ok {
		if c.hits != nil {
			c.hits.Inc()
		}
		return doc, true
	}
	if c.misses != nil {
		c.misses.Inc()
	}
	return nil, false
}

func (c *MetadataCache) Set(id string, doc *domain.Document) {
	c.lru.Add(id, doc)
}

// Remove invalidates a cached entry. Callers must invalidate on every
// metadata or status write so readers never serve a stale lifecycle state.
func (c *MetadataCache) Remove(id string) {
	c.lru.Remove(id)
}
