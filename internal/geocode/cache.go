// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mercatocomunale/navigator/internal/geo"
)

// coordPrecision is the precision used to quantize coordinates (0.0001 degrees ≈ 11 m)
const coordPrecision = 1e-4

type reverseKey struct {
	Provider string
	LatQ     int32
	LngQ     int32
}

type searchKey struct {
	Provider string
	Query    string
}

type cacheEntry struct {
	Address Address
	Expiry  time.Time
}

// CachedGeocoder caches the results of a Geocoder. Misses are cached with their own TTL.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration

	mu      sync.RWMutex
	reverse map[reverseKey]cacheEntry
	search  map[searchKey]cacheEntry
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:   coder,
		ttlHit:  ttlHit,
		ttlMiss: ttlMiss,
		reverse: make(map[reverseKey]cacheEntry),
		search:  make(map[searchKey]cacheEntry),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Reverse(ctx context.Context, coord geo.Coordinate) (Address, error) {
	key := reverseKey{
		Provider: c.coder.Name(),
		LatQ:     quantizeCoord(coord.Lat),
		LngQ:     quantizeCoord(coord.Lng),
	}

	c.mu.RLock()
	entry, ok := c.reverse[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		addr := entry.Address
		addr.CacheHit = true
		return addr, nil
	}

	addr, err := c.coder.Reverse(ctx, coord)
	if err != nil {
		return addr, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reverse[key] = cacheEntry{Address: addr, Expiry: time.Now().Add(c.ttl(addr))}
	return addr, nil
}

// Search resolves query. Queries differing only in case or surrounding whitespace share
// a cache entry. ErrNotFound results are cached as misses.
func (c *CachedGeocoder) Search(ctx context.Context, query string) (Address, error) {
	key := searchKey{
		Provider: c.coder.Name(),
		Query:    strings.ToLower(strings.TrimSpace(query)),
	}

	c.mu.RLock()
	entry, ok := c.search[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		addr := entry.Address
		addr.CacheHit = true
		if !addr.AddressFound {
			return addr, ErrNotFound
		}
		return addr, nil
	}

	addr, err := c.coder.Search(ctx, query)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return addr, err
	}

	c.mu.Lock()
	c.search[key] = cacheEntry{Address: addr, Expiry: time.Now().Add(c.ttl(addr))}
	c.mu.Unlock()
	return addr, err
}

func (c *CachedGeocoder) ttl(addr Address) time.Duration {
	if !addr.AddressFound {
		return c.ttlMiss
	}
	return c.ttlHit
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}
