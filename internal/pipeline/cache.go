package pipeline

import (
	"time"

	"github.com/maypok86/otter/v2"

	"go-activity-pipeline/internal/observability"
)

// TableCache keeps parsed tables keyed by source identity.
// A nil *TableCache is valid and caches nothing.
type TableCache struct {
	cache *otter.Cache[string, *ActivityTable]
}

// NewTableCache creates a bounded cache whose entries expire ttl after being written
func NewTableCache(maxTables int, ttl time.Duration) *TableCache {
	if maxTables <= 0 {
		maxTables = 64
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TableCache{
		cache: otter.Must(&otter.Options[string, *ActivityTable]{
			MaximumSize:      maxTables,
			ExpiryCalculator: otter.ExpiryWriting[string, *ActivityTable](ttl),
		}),
	}
}

// Get returns a cached table
func (c *TableCache) Get(key string) (*ActivityTable, bool) {
	if c == nil {
		return nil, false
	}
	t, ok := c.cache.GetIfPresent(key)
	observability.RecordCacheLookup(ok)
	return t, ok
}

// Put stores a parsed table
func (c *TableCache) Put(key string, t *ActivityTable) {
	if c == nil || t == nil {
		return
	}
	c.cache.Set(key, t)
}
