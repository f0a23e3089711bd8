// Package validation checks API request bodies against JSON schemas.
package validation

import (
	"fmt"
	"strings"
	"sync"

	"catalog-enrichment/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names.
const (
	ProductCreate     = "product.create"
	ProductUpdate     = "product.update"
	AttributeCreate   = "attribute.create"
	AttributeUpdate   = "attribute.update"
	EnrichmentRequest = "enrichment.request"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func object(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func productSchema(required ...string) map[string]interface{} {
	return object(map[string]interface{}{
		"name":       map[string]interface{}{"type": "string", "minLength": 1},
		"brand":      map[string]interface{}{"type": "string", "minLength": 1},
		"barcode":    map[string]interface{}{"type": []string{"string", "null"}},
		"images":     map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		"attributes": map[string]interface{}{"type": "object"},
	}, required)
}

func attributeSchema(required ...string) map[string]interface{} {
	return object(map[string]interface{}{
		"name":              map[string]interface{}{"type": "string", "minLength": 1},
		"type":              map[string]interface{}{"type": "string", "enum": models.AttributeTypeNames()},
		"unit":              map[string]interface{}{"type": []string{"string", "null"}},
		"options":           map[string]interface{}{"type": []string{"array", "null"}, "items": map[string]interface{}{"type": "string"}},
		"isRequired":        map[string]interface{}{"type": "boolean"},
		"isSystemGenerated": map[string]interface{}{"type": "boolean"},
	}, required)
}

var definitions = map[string]func() map[string]interface{}{
	ProductCreate:   func() map[string]interface{} { return productSchema("name", "brand") },
	ProductUpdate:   func() map[string]interface{} { return productSchema() },
	AttributeCreate: func() map[string]interface{} { return attributeSchema("name", "type") },
	AttributeUpdate: func() map[string]interface{} { return attributeSchema() },
	EnrichmentRequest: func() map[string]interface{} {
		return object(map[string]interface{}{
			"productIds": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]interface{}{"type": "integer", "minimum": 1},
			},
		}, []string{"productIds"})
	},
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled = make(map[string]*gojsonschema.Schema, len(definitions))
		for name, def := range definitions {
			s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def()))
			if err != nil {
				compileErr = fmt.Errorf("compile schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks a raw JSON body against the named schema. The error is
// non-nil only when the schema is unknown or the body is not JSON.
func Validate(name string, body []byte) (*ValidationResult, error) {
	all, err := schemas()
	if err != nil {
		return nil, err
	}
	schema, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// fieldName reports required-property errors against the missing property
// rather than its parent.
func fieldName(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() != "required" {
		return field
	}
	prop, _ := desc.Details()["property"].(string)
	if prop == "" {
		return field
	}
	if field == "(root)" || field == "" {
		return prop
	}
	return field + "." + prop
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for a field or anything under it
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
