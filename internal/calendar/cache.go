package calendar

import (
	"time"

	"github.com/p-blackswan/allocation-timeline/internal/lru"
)

type gridKey struct {
	start     time.Time
	view      View
	weekStart time.Weekday
	today     time.Time
}

// GridCache memoizes built grids. Grids are immutable once built so a cached
// grid may be shared between callers.
type GridCache struct {
	grids *lru.Cache[gridKey, *Grid]
	// OnBuild, if set, is told whether each lookup was served from cache.
	OnBuild func(cached bool)
}

// NewGridCache creates a cache holding up to size grids.
func NewGridCache(size int) *GridCache {
	return &GridCache{grids: lru.New[gridKey, *Grid](size, nil)}
}

// Get returns the grid for w as of today, building it on a miss.
func (c *GridCache) Get(w Window, today time.Time) *Grid {
	key := gridKey{start: w.Start, view: w.View, weekStart: w.WeekStart, today: today}
	if g, ok := c.grids.Get(key); ok {
		c.observe(true)
		return g
	}
	g := BuildWindow(w, today)
	c.grids.Put(key, g)
	c.observe(false)
	return g
}

// Len returns the number of cached grids.
func (c *GridCache) Len() int {
	return c.grids.Len()
}

func (c *GridCache) observe(cached bool) {
	if c.OnBuild != nil {
		c.OnBuild(cached)
	}
}
