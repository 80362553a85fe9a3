package prometheus

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/giantswarm/mcp-metrics/internal/server"
)

// catalogTTL is how long a fetched metric-name catalog stays fresh.
const catalogTTL = 5 * time.Minute

// catalogSnapshot is an immutable catalog from one successful fetch. It is
// always replaced wholesale, never mutated in place.
type catalogSnapshot struct {
	names     []string
	fetchedAt time.Time
}

// MetricsCache is a time-boxed cache of the full metric-name catalog. On
// expiry the catalog is refetched; if the refetch fails the last good
// snapshot is served so catalog lookups degrade instead of breaking callers.
//
// Concurrent calls during a stale window may each trigger a redundant fetch.
// That is accepted: catalog fetches are infrequent and idempotent, so there
// is no single-flight coalescing.
type MetricsCache struct {
	client   *Client
	logger   server.Logger
	ttl      time.Duration
	now      func() time.Time
	snapshot atomic.Pointer[catalogSnapshot]
}

// NewMetricsCache creates a cache around the given client. The cache starts
// empty and fills on first use.
func NewMetricsCache(client *Client, logger server.Logger) *MetricsCache {
	return &MetricsCache{
		client: client,
		logger: logger,
		ttl:    catalogTTL,
		now:    time.Now,
	}
}

// Catalog returns the metric-name catalog. It never returns an error: on a
// failed refresh it falls back to the previous snapshot, or to an empty
// catalog when none exists yet.
func (c *MetricsCache) Catalog(ctx context.Context) []string {
	if snapshot := c.snapshot.Load(); snapshot != nil && c.now().Sub(snapshot.fetchedAt) < c.ttl {
		c.logger.Debug("Using cached metric catalog", "age", c.now().Sub(snapshot.fetchedAt).String())
		return snapshot.names
	}

	names, err := c.client.MetricNames(ctx)
	if err != nil {
		c.logger.Error("Failed to refresh metric catalog", "error", err)
		if snapshot := c.snapshot.Load(); snapshot != nil {
			return snapshot.names
		}
		return nil
	}

	c.snapshot.Store(&catalogSnapshot{names: names, fetchedAt: c.now()})
	c.logger.Debug("Refreshed metric catalog", "count", len(names))
	return names
}
