// internal/workers/enrichment/process-enrichment-job/models.go
package processenrichmentjob

import (
	"context"
	"time"

	"catalog-enrichment/internal/models"
	enrichproduct "catalog-enrichment/internal/workers/enrichment/enrich-product"
)

// JobRepository persists job state. Implementations reject transitions out
// of terminal states and never lower progress.
type JobRepository interface {
	Create(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error)
	Get(ctx context.Context, id int64) (*models.EnrichmentJob, error)
	MarkProcessing(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error)
	UpdateProgress(ctx context.Context, id int64, progress float64) (*models.EnrichmentJob, error)
	Complete(ctx context.Context, id int64, result *models.JobResult) (*models.EnrichmentJob, error)
	Fail(ctx context.Context, id int64, message string) (*models.EnrichmentJob, error)
	FailUnfinished(ctx context.Context, message string) ([]int64, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]int64, error)
}

type ProductRepository interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	SaveEnrichment(ctx context.Context, id int64, values models.AttributeValues) error
}

type AttributeRepository interface {
	List(ctx context.Context) ([]models.Attribute, error)
}

// Enricher fills the missing attributes of one product.
type Enricher interface {
	Execute(ctx context.Context, input *enrichproduct.Input) (*enrichproduct.Output, error)
}

// EventPublisher announces jobs that reached a terminal state.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, job *models.EnrichmentJob) error
}

// Pool runs submitted tasks in the background. Submit fails when no
// capacity is left.
type Pool interface {
	Submit(task func()) error
}

// Dependencies bundles what the handler needs. Publisher may be nil.
type Dependencies struct {
	Jobs       JobRepository
	Products   ProductRepository
	Attributes AttributeRepository
	Enricher   Enricher
	Pool       Pool
	Publisher  EventPublisher
}
