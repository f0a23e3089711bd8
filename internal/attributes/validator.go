// Package attributes checks attribute values against their declared type.
package attributes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"catalog-enrichment/internal/models"

	"github.com/spf13/cast"
)

var (
	ErrNotString      = errors.New("expected a string")
	ErrNotNumber      = errors.New("expected a number or numeric string")
	ErrNotOption      = errors.New("value is not one of the attribute options")
	ErrNotOptionList  = errors.New("expected an array of attribute options")
	ErrNotMeasure     = errors.New(`expected an object with "value" and "unit"`)
	ErrUnknownType    = errors.New("unknown attribute type")
	ErrNullValue      = errors.New("value is null")
	ErrUnknownAttrKey = errors.New("no such attribute")
)

// Check validates raw for attr and returns its canonical form: strings for
// text and single select, float64 for NUMBER, []string for MULTIPLE_SELECT and
// {"value": float64, "unit": string} for MEASURE.
func Check(attr models.Attribute, raw interface{}) (interface{}, error) {
	if raw == nil {
		return nil, ErrNullValue
	}

	if attr.Type.IsText() {
		s, ok := raw.(string)
		if !ok {
			return nil, ErrNotString
		}
		return s, nil
	}

	switch attr.Type {
	case models.AttributeNumber:
		f, err := toNumber(raw)
		if err != nil {
			return nil, err
		}
		return f, nil

	case models.AttributeSingleSelect:
		s, ok := raw.(string)
		if !ok || !attr.HasOption(s) {
			return nil, ErrNotOption
		}
		return s, nil

	case models.AttributeMultipleSelect:
		items, ok := toStringSlice(raw)
		if !ok {
			return nil, ErrNotOptionList
		}
		for _, item := range items {
			if !attr.HasOption(item) {
				return nil, fmt.Errorf("%w: %q", ErrNotOption, item)
			}
		}
		return items, nil

	case models.AttributeMeasure:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, ErrNotMeasure
		}
		rawValue, hasValue := obj["value"]
		rawUnit, hasUnit := obj["unit"]
		if !hasValue || !hasUnit {
			return nil, ErrNotMeasure
		}
		unit, ok := rawUnit.(string)
		if !ok {
			return nil, ErrNotMeasure
		}
		value, err := toNumber(rawValue)
		if err != nil {
			return nil, ErrNotMeasure
		}
		return map[string]interface{}{"value": value, "unit": unit}, nil
	}

	return nil, ErrUnknownType
}

// Coerce is Check without the reason: ok is false when the value must be dropped.
func Coerce(attr models.Attribute, raw interface{}) (interface{}, bool) {
	v, err := Check(attr, raw)
	return v, err == nil
}

// FilterValid keeps the fields of data that pass validation for the given
// attributes. Missing, null and invalid fields are omitted.
func FilterValid(data map[string]interface{}, attrs []models.Attribute) (models.AttributeValues, []string) {
	out := models.AttributeValues{}
	var dropped []string
	for _, attr := range attrs {
		raw, present := data[attr.Name]
		if !present || raw == nil {
			continue
		}
		v, ok := Coerce(attr, raw)
		if !ok {
			dropped = append(dropped, attr.Name)
			continue
		}
		out[attr.Name] = v
	}
	return out, dropped
}

// ValidateBag checks a manually written attribute bag against the full schema.
// Every key must name an existing attribute and every non-null value must pass
// its type rule. Null values are removed from the returned bag.
func ValidateBag(bag models.AttributeValues, schema []models.Attribute) (models.AttributeValues, []string) {
	byName := make(map[string]models.Attribute, len(schema))
	for _, attr := range schema {
		byName[attr.Name] = attr
	}

	out := make(models.AttributeValues, len(bag))
	var problems []string
	for key, raw := range bag {
		attr, ok := byName[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: %v", key, ErrUnknownAttrKey))
			continue
		}
		if raw == nil {
			continue
		}
		v, err := Check(attr, raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		out[key] = v
	}
	return out, problems
}

func toNumber(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case bool, nil:
		return 0, ErrNotNumber
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, ErrNotNumber
		}
		raw = v
	case json.Number:
		raw = v.String()
	case map[string]interface{}, []interface{}:
		return 0, ErrNotNumber
	}

	f, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumber
	}
	return f, nil
}

func toStringSlice(raw interface{}) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return append([]string{}, v...), true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
