// internal/models/product.go
package models

import "time"

// AttributeValues maps attribute name to its typed value. Absent keys mean
// the value has not been filled in yet.
type AttributeValues map[string]interface{}

// Clone returns a shallow copy of the bag.
func (v AttributeValues) Clone() AttributeValues {
	out := make(AttributeValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	Brand      string          `json:"brand"`
	Barcode    *string         `json:"barcode"`
	Images     []string        `json:"images"`
	Attributes AttributeValues `json:"attributes"`
	AIEnriched bool            `json:"ai_enriched"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Query      string
	IDs        []int64
	AIEnriched *bool
	SortField  string
	SortOrder  string
}
