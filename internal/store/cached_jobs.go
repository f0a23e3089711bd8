// internal/store/cached_jobs.go
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/models"
)

// CachedJobStore writes job snapshots through to Redis after every
// successful PostgreSQL write and serves reads from Redis first. Cache
// failures are logged and never fail the operation.
//
// A failed write-through drops the cached key. When the drop fails too the
// job is marked stale and reads bypass Redis until a write lands or the job
// reaches a terminal state.
type CachedJobStore struct {
	jobs   *JobStore
	cache  *JobCache
	logger logger.Logger

	mu    sync.Mutex
	stale map[int64]struct{}
}

func NewCachedJobStore(jobs *JobStore, cache *JobCache, log logger.Logger) *CachedJobStore {
	return &CachedJobStore{
		jobs:   jobs,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "job-store"}),
		stale:  map[int64]struct{}{},
	}
}

func (s *CachedJobStore) isStale(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.stale[id]
	return ok
}

func (s *CachedJobStore) markStale(id int64, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stale {
		s.stale[id] = struct{}{}
	} else {
		delete(s.stale, id)
	}
}

func (s *CachedJobStore) put(ctx context.Context, job *models.EnrichmentJob, err error) (*models.EnrichmentJob, error) {
	if err != nil || s.cache == nil {
		return job, err
	}
	cerr := s.cache.Put(ctx, job)
	if cerr == nil {
		s.markStale(job.ID, false)
		return job, nil
	}

	s.logger.Warn("job cache write failed", map[string]interface{}{
		"jobId": job.ID,
		"error": cerr.Error(),
	})
	if derr := s.cache.Delete(ctx, job.ID); derr != nil {
		s.logger.Warn("job cache invalidation failed", map[string]interface{}{
			"jobId": job.ID,
			"error": derr.Error(),
		})
		s.markStale(job.ID, true)
	}
	return job, nil
}

// refill caches a snapshot read from PostgreSQL. A stale key may only be
// replaced by a terminal snapshot, which nothing can supersede.
func (s *CachedJobStore) refill(ctx context.Context, job *models.EnrichmentJob, stale bool) {
	var err error
	switch {
	case !stale:
		err = s.cache.PutIfAbsent(ctx, job)
	case job.Status.IsTerminal():
		if err = s.cache.Put(ctx, job); err == nil {
			s.markStale(job.ID, false)
		}
	default:
		if err = s.cache.Delete(ctx, job.ID); err == nil {
			s.markStale(job.ID, false)
		}
	}
	if err != nil {
		s.logger.Warn("job cache refill failed", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}
}

func (s *CachedJobStore) evict(ctx context.Context, ids []int64) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, ids...); err != nil {
		s.logger.Warn("job cache eviction failed", map[string]interface{}{
			"count": len(ids),
			"error": err.Error(),
		})
		for _, id := range ids {
			s.markStale(id, true)
		}
	}
}

func (s *CachedJobStore) Create(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error) {
	job, err := s.jobs.Create(ctx, productIDs)
	return s.put(ctx, job, err)
}

// Get serves the cached snapshot when present and refills it on a miss.
// Jobs whose cached key could not be invalidated are read from PostgreSQL.
func (s *CachedJobStore) Get(ctx context.Context, id int64) (*models.EnrichmentJob, error) {
	if s.cache == nil {
		return s.jobs.Get(ctx, id)
	}

	stale := s.isStale(id)
	if !stale {
		job, err := s.cache.Get(ctx, id)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("job cache read failed", map[string]interface{}{
				"jobId": id,
				"error": err.Error(),
			})
			return s.jobs.Get(ctx, id)
		}
	}

	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.refill(ctx, job, stale)
	return job, nil
}

func (s *CachedJobStore) MarkProcessing(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	job, err := s.jobs.MarkProcessing(ctx, id, progress)
	return s.put(ctx, job, err)
}

func (s *CachedJobStore) UpdateProgress(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error) {
	job, err := s.jobs.UpdateProgress(ctx, id, progress)
	return s.put(ctx, job, err)
}

func (s *CachedJobStore) Complete(ctx context.Context, id int64, result *models.JobResult) (*models.EnrichmentJob, error) {
	job, err := s.jobs.Complete(ctx, id, result)
	return s.put(ctx, job, err)
}

func (s *CachedJobStore) Fail(ctx context.Context, id int64, message string) (*models.EnrichmentJob, error) {
	job, err := s.jobs.Fail(ctx, id, message)
	return s.put(ctx, job, err)
}

func (s *CachedJobStore) FailUnfinished(ctx context.Context, message string) ([]int64, error) {
	ids, err := s.jobs.FailUnfinished(ctx, message)
	if err == nil {
		s.evict(ctx, ids)
	}
	return ids, err
}

func (s *CachedJobStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	ids, err := s.jobs.DeleteFinishedBefore(ctx, cutoff)
	if err == nil {
		s.evict(ctx, ids)
	}
	return ids, err
}
