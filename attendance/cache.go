package attendance

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/warp/timeclock/generic"
)

// =============================================================================
// REPORT CACHE - Read-through cache of classified days
// =============================================================================

// ReportCache memoises classification results keyed by (employee, period).
//
// Entries are never deleted on writes. Instead every key embeds a global
// generation and a per-employee generation; bumping either makes all older
// keys unreachable and ristretto evicts them in time.
//
//   - Invalidate(emp): events, rest days, vacations, permissions of emp
//   - InvalidateAll(): holidays, scenario loads
//
// A nil *ReportCache is valid and caches nothing.
type ReportCache struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu          sync.Mutex
	global      uint64
	generations map[generic.EmployeeID]uint64
}

// NewReportCache creates a cache bounded to maxCost classified days.
func NewReportCache(maxCost int64, ttl time.Duration) (*ReportCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:            maxCost * 10,
		MaxCost:                maxCost,
		BufferItems:            64,
		TtlTickerDurationInSec: 60,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create report cache: %w", err)
	}
	return &ReportCache{
		cache:       cache,
		ttl:         ttl,
		generations: make(map[generic.EmployeeID]uint64),
	}, nil
}

// Key names the current generation of (emp, p). Take the key before
// reading the store so that a write landing mid-computation leaves the
// result under a key nobody will ask for again.
func (c *ReportCache) Key(emp generic.EmployeeID, p generic.Period) string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d/%d/%s/%s/%s", c.global, c.generations[emp], emp, p.Start, p.End)
}

// Get returns a copy of the cached classification.
func (c *ReportCache) Get(key string) ([]DayStatus, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	days, ok := v.([]DayStatus)
	if !ok {
		return nil, false
	}
	return append([]DayStatus(nil), days...), true
}

// Put stores a classification. The write is visible to Get on return.
func (c *ReportCache) Put(key string, days []DayStatus) {
	if c == nil {
		return
	}
	stored := append([]DayStatus(nil), days...)
	cost := int64(len(stored))
	if cost == 0 {
		cost = 1
	}
	if c.ttl > 0 {
		c.cache.SetWithTTL(key, stored, cost, c.ttl)
	} else {
		c.cache.Set(key, stored, cost)
	}
	c.cache.Wait()
}

// Invalidate drops every cached period of one employee.
func (c *ReportCache) Invalidate(emp generic.EmployeeID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[emp]++
}

// InvalidateAll drops everything.
func (c *ReportCache) InvalidateAll() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global++
}

func (c *ReportCache) Close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
