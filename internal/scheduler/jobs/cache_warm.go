package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
	"github.com/wonny/revops/internal/metrics"
	"github.com/wonny/revops/pkg/logger"
	"github.com/wonny/revops/pkg/redis"
)

// warmTokens are the periods dashboards ask for first thing
var warmTokens = []string{"fy-to-date", "fq-to-date", "last-fq"}

// CacheWarmJob precomputes the common metrics reports so the first
// morning dashboard hit is served from cache. Correctness never
// depends on this; a cold cache just computes on demand.
type CacheWarmJob struct {
	engine *metrics.Engine
	cache  *redis.Cache
	logger *logger.Logger
}

// NewCacheWarmJob creates a cache warm job
func NewCacheWarmJob(engine *metrics.Engine, cache *redis.Cache, log *logger.Logger) *CacheWarmJob {
	return &CacheWarmJob{
		engine: engine,
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheWarmJob) Name() string {
	return "cache_warm"
}

// Schedule returns the cron schedule (every day at 3 AM, after the
// export fetch)
func (j *CacheWarmJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run computes and caches one report per warm token, all anchored to
// the dataset's latest snapshot date.
func (j *CacheWarmJob) Run(ctx context.Context) error {
	d, err := j.engine.Load(ctx)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	if len(d.Opportunities) == 0 {
		j.logger.Info("No data to warm")
		return nil
	}

	asOf := d.LatestDate.Format(time.DateOnly)
	for _, token := range warmTokens {
		rng, err := fiscal.Resolve(token, d.LatestDate)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", token, err)
		}

		report := j.engine.BuildReport(d, rng, nil, contracts.SnapshotFilter{})
		key := redis.MetricsKey("report", rng.String(), asOf)
		if err := j.cache.Set(ctx, key, report, redis.TTLDaily); err != nil {
			return fmt.Errorf("cache %s: %w", token, err)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"as_of":   asOf,
		"reports": len(warmTokens),
	}).Info("Report cache warmed")
	return nil
}
