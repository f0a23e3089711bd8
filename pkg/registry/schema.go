// pkg/registry/schema.go
package registry

import "catalog-enrichment/internal/models"

// Catalog is the seed file: system attributes and starter products.
type Catalog struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Attributes  []SeedAttribute `json:"attributes"`
	Products    []SeedProduct   `json:"products"`
}

type SeedAttribute struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Unit       string   `json:"unit,omitempty"`
	Options    []string `json:"options"`
	IsRequired bool     `json:"isRequired"`
}

type SeedProduct struct {
	Name    string   `json:"name"`
	Brand   string   `json:"brand"`
	Barcode *string  `json:"barcode"`
	Images  []string `json:"images"`
}

// Attribute converts the seed entry into a system generated attribute.
func (a SeedAttribute) Attribute() models.Attribute {
	options := a.Options
	if options == nil {
		options = []string{}
	}
	return models.Attribute{
		Name:              a.Name,
		Type:              models.AttributeType(a.Type),
		Unit:              a.Unit,
		Options:           options,
		IsRequired:        a.IsRequired,
		IsSystemGenerated: true,
	}
}

func (p SeedProduct) Product() models.Product {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return models.Product{
		Name:       p.Name,
		Brand:      p.Brand,
		Barcode:    p.Barcode,
		Images:     images,
		Attributes: models.AttributeValues{},
	}
}
