package attributes

import (
	"reflect"

	"catalog-enrichment/internal/models"
)

// IsEmpty reports whether a stored value counts as not filled in: absent
// (nil), an empty string, an empty array or an empty object.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// Eligible returns the attributes AI enrichment may fill for a product with
// the given current values: required attributes whose value is empty.
func Eligible(current models.AttributeValues, schema []models.Attribute) []models.Attribute {
	var out []models.Attribute
	for _, attr := range schema {
		if !attr.IsRequired {
			continue
		}
		if IsEmpty(current[attr.Name]) {
			out = append(out, attr)
		}
	}
	return out
}

// Required returns the subset of schema with IsRequired set.
func Required(schema []models.Attribute) []models.Attribute {
	out := make([]models.Attribute, 0, len(schema))
	for _, attr := range schema {
		if attr.IsRequired {
			out = append(out, attr)
		}
	}
	return out
}
