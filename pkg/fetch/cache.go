// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package fetch

import (
	"sync"
	"time"
)

// DefaultManifestTTL keeps entries close to the live edge while still
// coalescing a request herd for the same playlist.
const DefaultManifestTTL = 2 * time.Second

type cachedManifest struct {
	body      string
	fetchedAt time.Time
}

// ManifestCache is a concurrent keyed cache of manifest bodies with a short
// TTL. Stale entries are evicted on read. There is no negative caching.
type ManifestCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]cachedManifest
	now     func() time.Time
}

// NewManifestCache returns a cache with the given TTL.
// A non-positive TTL falls back to DefaultManifestTTL.
func NewManifestCache(ttl time.Duration) *ManifestCache {
	if ttl <= 0 {
		ttl = DefaultManifestTTL
	}
	return &ManifestCache{
		ttl:     ttl,
		entries: make(map[string]cachedManifest),
		now:     time.Now,
	}
}

// Get returns the cached body for url if it is still fresh.
func (c *ManifestCache) Get(url string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		delete(c.entries, url)
		return "", false
	}
	return entry.body, true
}

// Insert stores body for url, overwriting any previous entry.
func (c *ManifestCache) Insert(url, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[url] = cachedManifest{body: body, fetchedAt: c.now()}
}

// Len returns the number of entries, including not yet evicted stale ones.
func (c *ManifestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
