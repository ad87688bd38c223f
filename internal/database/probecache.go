package database

import (
	"context"
	"time"
)

// ProbeCache adapts an AuditDB into the lookup/store cache consumed by
// the probe step, scoped to a single domain. It is safe for concurrent
// use because the underlying AuditDB serializes all access through one
// connection.
//
// Design decision: Lookup and Store swallow database errors because:
//  1. A cache miss is always safe, the prober simply fetches the URL again
//  2. A failed write loses one cache entry, never audit correctness
//  3. The probe step stays free of persistence concerns
type ProbeCache struct {
	db     *AuditDB
	domain string
	maxAge time.Duration
}

// NewProbeCache returns a probe cache backed by db for the given
// domain. Stored probes older than maxAge are treated as misses.
func NewProbeCache(db *AuditDB, domain string, maxAge time.Duration) *ProbeCache {
	return &ProbeCache{
		db:     db,
		domain: domain,
		maxAge: maxAge,
	}
}

// Lookup returns the cached status code for href when a probe newer
// than maxAge is stored for the domain.
func (c *ProbeCache) Lookup(href string) (int, bool) {
	status, ok, err := c.db.RecentProbe(context.Background(), c.domain, href, c.maxAge)
	if err != nil {
		return 0, false
	}
	return status, ok
}

// Store records the probe outcome for href.
func (c *ProbeCache) Store(href string, status int) {
	_ = c.db.RecordProbe(context.Background(), c.domain, href, status)
}
