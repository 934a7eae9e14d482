// Package collector builds a metric snapshot of a workspace's embedded
// database. One pass, many queries, and every failed query degrades to a
// recorded data gap instead of failing the pass. Only an unreachable instance
// aborts, and only before the first metric query runs.
package collector

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/flowmedic/internal/gateway"
	"github.com/ppiankov/flowmedic/internal/models"
	"github.com/ppiankov/flowmedic/pkg/config"
)

// Collector gathers snapshots through a query gateway.
type Collector struct {
	gw  *gateway.Gateway
	cfg *config.Config

	mu   sync.Mutex
	snap *models.Snapshot
	now  func() time.Time
}

// New creates a collector.
func New(gw *gateway.Gateway, cfg *config.Config) *Collector {
	return &Collector{gw: gw, cfg: cfg, now: time.Now}
}

// BuildSnapshot probes the instance, then runs every metric collector
// concurrently. The returned snapshot distinguishes absent metrics from zero
// values: a collector failure leaves its field nil and appends a gap.
func (c *Collector) BuildSnapshot(ctx context.Context, target models.Target) (*models.Snapshot, error) {
	if err := c.gw.Probe(ctx, target); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.snap = &models.Snapshot{
		Workspace: target.Workspace,
		TakenAt:   c.now().UTC(),
	}
	c.mu.Unlock()

	tasks := []task{
		{metric: models.MetricDatabaseSize, run: func(ctx context.Context) error { return c.collectDatabaseSize(ctx, target) }},
		{metric: models.MetricTableSizes, run: func(ctx context.Context) error { return c.collectTableSizes(ctx, target) }},
		{metric: models.MetricLargestExecutions, run: func(ctx context.Context) error { return c.collectLargestExecutions(ctx, target) }},
		{metric: models.MetricWorkflowData, run: func(ctx context.Context) error { return c.collectWorkflowData(ctx, target) }},
		{metric: models.MetricTopWorkflows24h, run: func(ctx context.Context) error { return c.collectTopWorkflows24h(ctx, target) }},
		{metric: models.MetricErrorWorkflows24h, run: func(ctx context.Context) error { return c.collectErrorWorkflows24h(ctx, target) }},
		{metric: models.MetricQueueStatus, run: func(ctx context.Context) error { return c.collectQueueStatus(ctx, target) }},
		{metric: models.MetricGrowthTrend, run: func(ctx context.Context) error { return c.collectGrowthTrend(ctx, target) }},
		{metric: models.MetricTotals, run: func(ctx context.Context) error { return c.collectTotals(ctx, target) }},
	}

	pool := newWorkerPool(c.cfg.Concurrency)
	gaps := pool.Run(ctx, tasks)

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range gaps {
		c.snap.Gaps = append(c.snap.Gaps, models.DataGap{Metric: g.metric, Reason: g.reason})
	}
	// Pool workers finish in arbitrary order; keep gap output stable.
	sort.Slice(c.snap.Gaps, func(i, j int) bool {
		return c.snap.Gaps[i].Metric < c.snap.Gaps[j].Metric
	})

	return c.snap, nil
}

// cutoff24h returns the 24h window boundary as a sqlite datetime literal.
// The local clock decides the window; instance clock skew is accepted.
func (c *Collector) cutoff24h() string {
	return c.now().UTC().Add(-24 * time.Hour).Format("2006-01-02 15:04:05")
}
