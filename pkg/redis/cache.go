package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/fernhealth/fern/pkg/models"
)

// DefaultDashboardTTL keeps cached dashboards short-lived. Dashboards are
// pure projections of current data, so a short TTL is just a load shield and
// staleness resolves itself.
const DefaultDashboardTTL = 30 * time.Second

// DashboardCache caches computed dashboards keyed by subject, window, and
// reference date. A cache failure degrades to a recompute, never to an error.
type DashboardCache struct {
	client *Client
	ttl    time.Duration
	logger ectologger.Logger
}

func NewDashboardCache(client *Client, ttl time.Duration, logger ectologger.Logger) *DashboardCache {
	if ttl <= 0 {
		ttl = DefaultDashboardTTL
	}
	return &DashboardCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func dashboardKey(subjectID string, windowDays int, reference models.Date) string {
	return fmt.Sprintf("fern:dashboard:%s:%d:%s", subjectID, windowDays, reference)
}

// Get returns the cached dashboard, or nil on a miss.
func (c *DashboardCache) Get(ctx context.Context, subjectID string, windowDays int, reference models.Date) *models.Dashboard {
	if c.client == nil {
		return nil
	}

	raw, err := c.client.Get(ctx, dashboardKey(subjectID, windowDays, reference))
	if err != nil {
		if !IsNil(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("Dashboard cache read failed")
		}
		return nil
	}

	var dashboard models.Dashboard
	if err := json.Unmarshal([]byte(raw), &dashboard); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Dashboard cache entry corrupt")
		return nil
	}
	return &dashboard
}

// Set stores a computed dashboard with the cache TTL.
func (c *DashboardCache) Set(ctx context.Context, dashboard *models.Dashboard, reference models.Date) {
	if c.client == nil || dashboard == nil {
		return
	}

	raw, err := json.Marshal(dashboard)
	if err != nil {
		return
	}

	key := dashboardKey(dashboard.SubjectID, dashboard.WindowDays, reference)
	if err := c.client.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Dashboard cache write failed")
	}
}

// Invalidate drops cached dashboards for a subject across common windows.
// Called after writes that change the projection (relapse reports).
func (c *DashboardCache) Invalidate(ctx context.Context, subjectID string, reference models.Date) {
	if c.client == nil {
		return
	}

	keys := []string{
		dashboardKey(subjectID, 7, reference),
		dashboardKey(subjectID, 30, reference),
	}
	if err := c.client.Del(ctx, keys...); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Dashboard cache invalidation failed")
	}
}
