package design

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/maypok86/otter"
)

// DefaultCacheBytes bounds the total size of cached reports.
const DefaultCacheBytes = 64 << 20

// ReportCache keeps yosys hierarchy reports keyed by the exact source text and top
// module that produced them.
type ReportCache struct {
	cache otter.Cache[string, string]
}

// NewReportCache creates a cache holding up to maxBytes of report text. A positive
// ttl expires entries after that long.
func NewReportCache(maxBytes int, ttl time.Duration) (*ReportCache, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheBytes
	}

	builder, err := otter.NewBuilder[string, string](maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to configure report cache: %w", err)
	}
	builder = builder.
		CollectStats().
		Cost(func(key string, report string) uint32 {
			return uint32(len(key) + len(report))
		})

	var cache otter.Cache[string, string]
	if ttl > 0 {
		cache, err = builder.WithTTL(ttl).Build()
	} else {
		cache, err = builder.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build report cache: %w", err)
	}
	return &ReportCache{cache: cache}, nil
}

// ReportKey hashes a source text and top module into a cache key.
func ReportKey(source, top string) string {
	h := sha256.New()
	h.Write([]byte(top))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached report for key.
func (c *ReportCache) Get(key string) (string, bool) {
	return c.cache.Get(key)
}

// Put stores a report. Reports larger than the cache are silently dropped.
func (c *ReportCache) Put(key, report string) {
	c.cache.Set(key, report)
}

// Invalidate drops every cached report.
func (c *ReportCache) Invalidate() {
	c.cache.Clear()
}

// Stats returns hit and miss counts.
func (c *ReportCache) Stats() (hits, misses int64) {
	s := c.cache.Stats()
	return s.Hits(), s.Misses()
}

// Close releases the cache's background resources.
func (c *ReportCache) Close() {
	c.cache.Close()
}
