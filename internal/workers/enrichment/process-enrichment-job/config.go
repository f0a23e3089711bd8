// internal/workers/enrichment/process-enrichment-job/config.go
package processenrichmentjob

import (
	"time"

	"catalog-enrichment/internal/common/config"
)

type Config struct {
	PoolSize        int
	QueryTimeout    time.Duration
	RetentionPeriod time.Duration
	CleanupSchedule string
}

func LoadConfig() *Config {
	return &Config{
		PoolSize:        5,
		QueryTimeout:    30 * time.Second,
		RetentionPeriod: 30 * 24 * time.Hour,
		CleanupSchedule: "@daily",
	}
}

// NewConfig reads the pool size and the per-query timeout from the worker
// section and the retention settings from the enrichment section.
func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	worker := config.GetWorkerConfig(cfg, TaskType)
	if worker.MaxJobsActive > 0 {
		c.PoolSize = worker.MaxJobsActive
	}
	if worker.Timeout > 0 {
		c.QueryTimeout = config.GetDuration(worker.Timeout)
	}
	if cfg.Enrichment.RetentionDays > 0 {
		c.RetentionPeriod = time.Duration(cfg.Enrichment.RetentionDays) * 24 * time.Hour
	}
	if cfg.Enrichment.CleanupSchedule != "" {
		c.CleanupSchedule = cfg.Enrichment.CleanupSchedule
	}
	return c
}
