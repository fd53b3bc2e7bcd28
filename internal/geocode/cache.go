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

	"github.com/wneessen/weather-fetch/internal/geobus"
)

// coordPrecision is the precision used to quantize coordinates (0.01 degrees ≈ 1.1 km)
const coordPrecision = 1e-2

type cacheKey struct {
	Provider string
	LatQ     int32
	LonQ     int32
}

type searchKey struct {
	Provider string
	Name     string
}

type cacheEntry struct {
	Address Address
	Expiry  time.Time
}

type searchEntry struct {
	Coords geobus.Coordinate
	Expiry time.Time
}

// CachedGeocoder wraps a Geocoder and caches its answers. Lookups that found nothing are cached
// with ttlMiss, everything else with ttlHit. Errors are never cached.
type CachedGeocoder struct {
	coder   Geocoder
	ttlHit  time.Duration
	ttlMiss time.Duration

	mu       sync.RWMutex
	cache    map[cacheKey]cacheEntry
	searches map[searchKey]searchEntry
}

func NewCachedGeocoder(coder Geocoder, ttlHit, ttlMiss time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		coder:    coder,
		ttlHit:   ttlHit,
		ttlMiss:  ttlMiss,
		cache:    make(map[cacheKey]cacheEntry),
		searches: make(map[searchKey]searchEntry),
	}
}

func (c *CachedGeocoder) Name() string {
	return "geocoder cache using " + c.coder.Name()
}

func (c *CachedGeocoder) Reverse(ctx context.Context, coords geobus.Coordinate) (Address, error) {
	key := newKey(c.coder.Name(), coords.Lat, coords.Lon)

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		addr := entry.Address
		addr.CacheHit = true
		return addr, nil
	}

	addr, err := c.coder.Reverse(ctx, coords)
	if err != nil {
		return addr, err
	}

	ttl := c.ttlHit
	if !addr.AddressFound {
		ttl = c.ttlMiss
	}
	c.mu.Lock()
	c.cache[key] = cacheEntry{Address: addr, Expiry: time.Now().Add(ttl)}
	c.mu.Unlock()

	return addr, nil
}

// Search looks up the coordinates of name. Names are compared case-insensitively.
func (c *CachedGeocoder) Search(ctx context.Context, name string) (geobus.Coordinate, error) {
	key := searchKey{Provider: c.coder.Name(), Name: strings.ToLower(strings.TrimSpace(name))}

	c.mu.RLock()
	entry, ok := c.searches[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.Expiry) {
		if !entry.Coords.Found {
			return geobus.Coordinate{}, ErrNotFound
		}
		return entry.Coords, nil
	}

	coords, err := c.coder.Search(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		c.mu.Lock()
		c.searches[key] = searchEntry{Expiry: time.Now().Add(c.ttlMiss)}
		c.mu.Unlock()
		return coords, err
	case err != nil:
		return coords, err
	}

	c.mu.Lock()
	c.searches[key] = searchEntry{Coords: coords, Expiry: time.Now().Add(c.ttlHit)}
	c.mu.Unlock()

	return coords, nil
}

func quantizeCoord(val float64) int32 {
	return int32(math.Round(val / coordPrecision))
}

func newKey(provider string, lat, lon float64) cacheKey {
	return cacheKey{
		Provider: provider,
		LatQ:     quantizeCoord(lat),
		LonQ:     quantizeCoord(lon),
	}
}
