// internal/app/system/viewcache/viewcache.go
//
// Package viewcache caches rendered view models (dashboard summaries and
// similar) per organization. Mutations invalidate every entry of the
// affected organization; readers tolerate stale entries until then.
package viewcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dalemusser/stratagrc/internal/app/system/metrics"
	"go.uber.org/zap"
)

// Cache stores opaque values keyed per organization.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	InvalidateOrg(ctx context.Context, orgID string) error
}

// Key builds the cache key for a named view of orgID.
func Key(orgID, view string) string {
	return orgPrefix(orgID) + view
}

func orgPrefix(orgID string) string {
	return "org:" + orgID + ":"
}

// GetJSON decodes the cached value at key into dst. It reports a miss on
// any error, including a nil cache. Lookups are counted on m.
func GetJSON(ctx context.Context, c Cache, m *metrics.Metrics, key string, dst any) bool {
	if c == nil {
		return false
	}
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		m.CacheLookup(false)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		m.CacheLookup(false)
		return false
	}
	m.CacheLookup(true)
	return true
}

// SetJSON encodes v and stores it at key. Errors are returned for logging;
// callers should not fail a request over them.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw)
}

// InvalidateAsync drops orgID's entries on a detached goroutine. The
// request that triggered it does not wait; failures are only logged.
func InvalidateAsync(c Cache, orgID string, logger *zap.Logger) {
	if c == nil || orgID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.InvalidateOrg(ctx, orgID); err != nil {
			logger.Warn("view cache invalidation failed",
				zap.String("org_id", orgID), zap.Error(err))
		}
	}()
}
