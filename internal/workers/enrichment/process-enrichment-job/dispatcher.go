// internal/workers/enrichment/process-enrichment-job/dispatcher.go
package processenrichmentjob

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"catalog-enrichment/internal/common/logger"

	"github.com/panjf2000/ants/v2"
)

// Dispatcher runs jobs on a bounded goroutine pool. Submissions beyond the
// pool size wait for a free worker instead of being rejected, so a job stays
// PENDING until it can run.
type Dispatcher struct {
	pool    *ants.Pool
	waiting atomic.Int64
	logger  logger.Logger
}

func NewDispatcher(size int, log logger.Logger) (*Dispatcher, error) {
	if size <= 0 {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create enrichment pool: %w", err)
	}
	return &Dispatcher{
		pool:   pool,
		logger: log.WithFields(map[string]interface{}{"component": "dispatcher"}),
	}, nil
}

// Submit queues task and returns immediately. It fails only once the pool
// has been released.
func (d *Dispatcher) Submit(task func()) error {
	if d.pool.IsClosed() {
		return ErrPoolClosed
	}

	d.waiting.Add(1)
	go func() {
		err := d.pool.Submit(func() {
			d.waiting.Add(-1)
			task()
		})
		if err != nil {
			d.waiting.Add(-1)
			// The job stays PENDING and is failed by the next startup recovery.
			d.logger.Warn("queued job dropped", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}

func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

// Waiting is the number of submitted jobs not yet picked up by a worker.
func (d *Dispatcher) Waiting() int {
	return int(d.waiting.Load())
}

func (d *Dispatcher) Capacity() int {
	return d.pool.Cap()
}

// Release waits up to timeout for running jobs before closing the pool.
func (d *Dispatcher) Release(timeout time.Duration) error {
	err := d.pool.ReleaseTimeout(timeout)
	if errors.Is(err, ants.ErrPoolClosed) {
		return nil
	}
	return err
}
