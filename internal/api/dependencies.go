package api

import (
	"context"

	"catalog-enrichment/internal/models"
)

type ProductRepository interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
}

type AttributeRepository interface {
	List(ctx context.Context) ([]models.Attribute, error)
	Get(ctx context.Context, id int64) (*models.Attribute, error)
	Create(ctx context.Context, attr *models.Attribute) error
	Update(ctx context.Context, attr *models.Attribute, previousName string) error
	Delete(ctx context.Context, id int64) error
}

// EnrichmentService starts and reports enrichment jobs.
type EnrichmentService interface {
	Submit(ctx context.Context, productIDs []int64) (*models.EnrichmentJob, error)
	Query(ctx context.Context, jobID int64) (*models.EnrichmentJob, error)
}

// ProductSearch is the optional full-text index behind the q filter.
type ProductSearch interface {
	Search(ctx context.Context, q string) ([]int64, error)
	Index(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int64) error
}

// Dependencies bundles what the API handlers need. Search may be nil.
type Dependencies struct {
	Products   ProductRepository
	Attributes AttributeRepository
	Enrichment EnrichmentService
	Search     ProductSearch
}
