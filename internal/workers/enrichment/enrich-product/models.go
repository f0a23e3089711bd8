// internal/workers/enrichment/enrich-product/models.go
package enrichproduct

import "catalog-enrichment/internal/models"

// Mode names the request shape sent to the AI service.
type Mode string

const (
	ModeText   Mode = "text"
	ModeVision Mode = "vision"
)

type Input struct {
	Product    models.Product     `json:"product"`
	Attributes []models.Attribute `json:"attributes"`
}

type Output struct {
	Attributes models.AttributeValues `json:"attributes"`
	Filled     []string               `json:"filled,omitempty"`
	Dropped    []string               `json:"dropped,omitempty"`
	Mode       Mode                   `json:"mode,omitempty"`
	Skipped    bool                   `json:"skipped"`
}

// FilledValues returns only the values the AI filled in, keyed by attribute name.
func (o *Output) FilledValues() models.AttributeValues {
	out := make(models.AttributeValues, len(o.Filled))
	for _, name := range o.Filled {
		if v, ok := o.Attributes[name]; ok {
			out[name] = v
		}
	}
	return out
}
