// pkg/registry/registry.go
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"catalog-enrichment/internal/models"
)

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cat, nil
}

// Validate checks the catalog before anything is written.
func (c *Catalog) Validate() error {
	if len(c.Attributes) == 0 {
		return fmt.Errorf("catalog contains no attributes")
	}

	names := make(map[string]bool)
	for _, sa := range c.Attributes {
		if names[sa.Name] {
			return fmt.Errorf("duplicate attribute name: %s", sa.Name)
		}
		names[sa.Name] = true

		attr := sa.Attribute()
		if !attr.Type.Valid() {
			return fmt.Errorf("attribute %s has unknown type %q", sa.Name, sa.Type)
		}
		if err := attr.Validate(); err != nil {
			return fmt.Errorf("attribute %q: %w", sa.Name, err)
		}
	}

	for i, p := range c.Products {
		if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Brand) == "" {
			return fmt.Errorf("product %d missing name or brand", i)
		}
	}
	return nil
}

type AttributeWriter interface {
	UpsertByName(ctx context.Context, attr *models.Attribute) error
}

type ProductWriter interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p *models.Product) error
}

// Result reports what Apply wrote.
type Result struct {
	Attributes int
	Products   int
}

// Apply upserts every attribute by name and inserts the products only into
// an empty catalog, so running it twice leaves the data unchanged.
func Apply(ctx context.Context, c *Catalog, attrs AttributeWriter, products ProductWriter) (Result, error) {
	var res Result
	if err := c.Validate(); err != nil {
		return res, err
	}

	for _, sa := range c.Attributes {
		attr := sa.Attribute()
		if err := attrs.UpsertByName(ctx, &attr); err != nil {
			return res, fmt.Errorf("upsert attribute %s: %w", sa.Name, err)
		}
		res.Attributes++
	}

	n, err := products.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count products: %w", err)
	}
	if n > 0 {
		return res, nil
	}

	for _, sp := range c.Products {
		p := sp.Product()
		if err := products.Create(ctx, &p); err != nil {
			return res, fmt.Errorf("create product %s: %w", sp.Name, err)
		}
		res.Products++
	}
	return res, nil
}
