// internal/store/job_cache.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-enrichment/internal/models"

	"github.com/redis/go-redis/v9"
)

const jobKeyPrefix = "enrichment:job:"

// JobCache keeps the latest snapshot of each job in Redis for pollers.
type JobCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewJobCache(client redis.Cmdable, ttl time.Duration) *JobCache {
	return &JobCache{client: client, ttl: ttl}
}

func jobKey(id int64) string {
	return fmt.Sprintf("%s%d", jobKeyPrefix, id)
}

func (c *JobCache) Put(ctx context.Context, job *models.EnrichmentJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, jobKey(job.ID), data, c.ttl).Err()
}

// PutIfAbsent stores job only when no snapshot is cached, so a read-path
// refill never replaces a newer write-through.
func (c *JobCache) PutIfAbsent(ctx context.Context, job *models.EnrichmentJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, jobKey(job.ID), data, c.ttl).Err()
}

// Get returns ErrCacheMiss when no snapshot is stored.
func (c *JobCache) Get(ctx context.Context, id int64) (*models.EnrichmentJob, error) {
	val, err := c.client.Get(ctx, jobKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var job models.EnrichmentJob
	if err := json.Unmarshal([]byte(val), &job); err != nil {
		return nil, fmt.Errorf("decode cached job %d: %w", id, err)
	}
	return &job, nil
}

func (c *JobCache) Delete(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
