// internal/workers/enrichment/process-enrichment-job/handler.go
package processenrichmentjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog-enrichment/internal/attributes"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/metrics"
	"catalog-enrichment/internal/common/observability"
	"catalog-enrichment/internal/models"
	"catalog-enrichment/internal/store"
	enrichproduct "catalog-enrichment/internal/workers/enrichment/enrich-product"
)

const (
	TaskType = "process-enrichment-job"

	// InterruptedMessage is the failure recorded for jobs a previous process left unfinished.
	InterruptedMessage = "interrupted by server restart"
	poolClosedMessage  = "enrichment pool closed"

	startProgress = 5.0
	loopProgress  = 90.0
)

var (
	ErrNoProducts     = errors.New("Product IDs are required")
	ErrJobNotFound    = errors.New("ENRICHMENT_JOB_NOT_FOUND")
	ErrPoolClosed     = errors.New("ENRICHMENT_POOL_CLOSED")
	ErrAlreadyStarted = errors.New("ENRICHMENT_JOB_ALREADY_STARTED")
)

// Handler owns the enrichment job lifecycle:
// PENDING -> PROCESSING -> COMPLETED | FAILED.
type Handler struct {
	config    *Config
	jobs      JobRepository
	products  ProductRepository
	attrs     AttributeRepository
	enricher  Enricher
	pool      Pool
	publisher EventPublisher
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, deps Dependencies, obs *observability.Observability, log logger.Logger) *Handler {
	if obs == nil {
		obs = observability.NewNoop()
	}
	return &Handler{
		config:    config,
		jobs:      deps.Jobs,
		products:  deps.Products,
		attrs:     deps.Attributes,
		enricher:  deps.Enricher,
		pool:      deps.Pool,
		publisher: deps.Publisher,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) query(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.config.QueryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.config.QueryTimeout)
}

// Create records a PENDING job for productIDs. Duplicate ids are collapsed,
// keeping the first occurrence.
func (h *Handler) Create(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error) {
	ids := dedupe(productIDs)
	if len(ids) == 0 {
		return nil, ErrNoProducts
	}

	qctx, cancel := h.query(ctx)
	defer cancel()

	job, err := h.jobs.Create(qctx, ids)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	h.logger.Info("enrichment job created", map[string]interface{}{
		"jobId":        job.ID,
		"productCount": len(ids),
	})
	return job, nil
}

// Submit creates a job and queues it on the pool. The job waits as PENDING
// while every worker is busy. Only a closed pool fails the job, returning
// ErrPoolClosed with it.
func (h *Handler) Submit(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error) {
	job, err := h.Create(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	jobID := job.ID
	if err := h.pool.Submit(func() { _ = h.Run(context.Background(), jobID) }); err != nil {
		h.obs.RecordQueueRejection(ctx)
		h.logger.Warn("enrichment pool rejected job", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
		failed := h.fail(jobID, poolClosedMessage)
		if failed != nil {
			job = failed
		}
		if errors.Is(err, ErrPoolClosed) {
			return job, err
		}
		return job, fmt.Errorf("%w: %v", ErrPoolClosed, err)
	}
	return job, nil
}

// Run processes one job. A job that is not PENDING is left untouched, so
// each job runs at most once.
func (h *Handler) Run(ctx context.Context, jobID int64) (err error) {
	start := time.Now()
	metrics.EnrichmentJobsActive.Inc()
	defer metrics.EnrichmentJobsActive.Dec()

	log := h.logger.WithFields(map[string]interface{}{"jobId": jobID})

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("enrichment job panicked: %v", r)
			log.Error("job panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			h.finish(ctx, h.fail(jobID, err.Error()), start)
		}
	}()

	qctx, cancel := h.query(ctx)
	job, err := h.jobs.MarkProcessing(qctx, jobID, startProgress)
	cancel()
	if errors.Is(err, store.ErrInvalidTransition) {
		log.Warn("job is not pending, skipping", nil)
		return ErrAlreadyStarted
	}
	if err != nil {
		log.Error("failed to start job", map[string]interface{}{"error": err.Error()})
		h.finish(ctx, h.fail(jobID, err.Error()), start)
		return err
	}

	log.Info("processing job", map[string]interface{}{"productCount": len(job.ProductIDs)})

	result, err := h.process(ctx, job, log)
	if err != nil {
		log.Error("job failed", map[string]interface{}{"error": err.Error()})
		h.finish(ctx, h.fail(jobID, err.Error()), start)
		return err
	}

	qctx, cancel = h.query(ctx)
	done, err := h.jobs.Complete(qctx, jobID, result)
	cancel()
	if err != nil {
		log.Error("failed to complete job", map[string]interface{}{"error": err.Error()})
		h.finish(ctx, h.fail(jobID, err.Error()), start)
		return err
	}

	log.Info("job completed", map[string]interface{}{
		"enrichedCount": *result.EnrichedCount,
		"failedCount":   *result.FailedCount,
		"duration":      time.Since(start).String(),
	})
	h.finish(ctx, done, start)
	return nil
}

func (h *Handler) process(ctx context.Context, job *models.EnrichmentJob, log logger.Logger) (*models.JobResult, error) {
	qctx, cancel := h.query(ctx)
	products, err := h.products.GetMany(qctx, job.ProductIDs)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	qctx, cancel = h.query(ctx)
	schema, err := h.attrs.List(qctx)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}
	required := attributes.Required(schema)

	total := len(job.ProductIDs)
	enriched := 0
	for i, id := range job.ProductIDs {
		progress := startProgress + float64(i)/float64(total)*loopProgress

		qctx, cancel := h.query(ctx)
		_, err := h.jobs.UpdateProgress(qctx, job.ID, progress)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}

		if h.enrichOne(ctx, products, id, required, log) {
			enriched++
		}
	}

	return models.CompletedResult(enriched, total-enriched), nil
}

// enrichOne reports whether the product was enriched and saved. Failures
// are logged and counted, never returned.
func (h *Handler) enrichOne(ctx context.Context, products map[int64]models.Product, id int64, required []models.Attribute, log logger.Logger) bool {
	log = log.WithFields(map[string]interface{}{"productId": id})

	product, ok := products[id]
	if !ok {
		log.Warn("product not found", nil)
		h.countProduct(ctx, "missing")
		return false
	}

	out, err := h.enricher.Execute(ctx, &enrichproduct.Input{Product: product, Attributes: required})
	if err != nil {
		log.Error("product enrichment failed", map[string]interface{}{"error": err.Error()})
		h.countProduct(ctx, "failed")
		return false
	}

	qctx, cancel := h.query(ctx)
	err = h.products.SaveEnrichment(qctx, id, out.FilledValues())
	cancel()
	if err != nil {
		log.Error("failed to save enriched product", map[string]interface{}{"error": err.Error()})
		h.countProduct(ctx, "failed")
		return false
	}

	outcome := "enriched"
	if out.Skipped {
		outcome = "unchanged"
	}
	h.countProduct(ctx, outcome)
	return true
}

func (h *Handler) countProduct(ctx context.Context, outcome string) {
	metrics.EnrichmentProductsTotal.WithLabelValues(outcome).Inc()
	h.obs.RecordProduct(ctx, outcome)
}

// fail records message as the job failure. It uses its own context so the
// failure is stored even when the caller's context is done.
func (h *Handler) fail(jobID int64, message string) *models.EnrichmentJob {
	ctx, cancel := h.query(context.Background())
	defer cancel()

	job, err := h.jobs.Fail(ctx, jobID, message)
	if err != nil {
		h.logger.Error("failed to mark job failed", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
		return nil
	}
	return job
}

// finish records metrics and publishes the terminal snapshot.
func (h *Handler) finish(ctx context.Context, job *models.EnrichmentJob, start time.Time) {
	if job == nil {
		return
	}
	status := string(job.Status)
	elapsed := time.Since(start)

	metrics.EnrichmentJobsTotal.WithLabelValues(status).Inc()
	metrics.EnrichmentJobDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	h.obs.RecordJobProcessed(ctx, status)
	h.obs.RecordJobDuration(ctx, elapsed, status)

	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishJobEvent(ctx, job); err != nil {
		h.logger.Warn("job event publish failed", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}
}

// Query returns the current snapshot of a job.
func (h *Handler) Query(ctx context.Context, jobID int64) (*models.EnrichmentJob, error) {
	qctx, cancel := h.query(ctx)
	defer cancel()

	job, err := h.jobs.Get(qctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	return job, err
}

// RecoverInterrupted fails jobs a previous process left PENDING or PROCESSING.
func (h *Handler) RecoverInterrupted(ctx context.Context) (int, error) {
	qctx, cancel := h.query(ctx)
	defer cancel()

	ids, err := h.jobs.FailUnfinished(qctx, InterruptedMessage)
	if err != nil {
		return 0, fmt.Errorf("recover interrupted jobs: %w", err)
	}
	if len(ids) > 0 {
		h.logger.Warn("marked interrupted jobs as failed", map[string]interface{}{"jobIds": ids})
		for range ids {
			metrics.EnrichmentJobsTotal.WithLabelValues(string(models.JobStatusFailed)).Inc()
		}
	}
	return len(ids), nil
}

// PurgeExpired deletes terminal jobs older than the retention period.
func (h *Handler) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	qctx, cancel := h.query(ctx)
	defer cancel()

	ids, err := h.jobs.DeleteFinishedBefore(qctx, now.Add(-h.config.RetentionPeriod))
	if err != nil {
		return 0, fmt.Errorf("purge expired jobs: %w", err)
	}
	if len(ids) > 0 {
		h.logger.Info("purged expired jobs", map[string]interface{}{"count": len(ids)})
	}
	return len(ids), nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
