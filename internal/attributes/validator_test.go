package attributes

import (
	"encoding/json"
	"sort"
	"testing"

	"catalog-enrichment/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func attr(name string, typ models.AttributeType) models.Attribute {
	return models.Attribute{Name: name, Type: typ, IsRequired: true}
}

var storage = models.Attribute{
	Name:       "Storage Requirements",
	Type:       models.AttributeSingleSelect,
	Options:    []string{"Dry Storage", "Deep Frozen", "Ambient Storage", "Frozen Food Storage"},
	IsRequired: true,
}

var allergens = models.Attribute{
	Name:       "Allergens",
	Type:       models.AttributeMultipleSelect,
	Options:    []string{"Gluten", "Soy", "Nuts"},
	IsRequired: true,
}

var weight = models.Attribute{Name: "Item Weight", Type: models.AttributeMeasure, Unit: "G", IsRequired: true}

// ==========================
// Core Functionality Tests
// ==========================

func TestCheck_Accepts(t *testing.T) {
	tests := []struct {
		name string
		attr models.Attribute
		raw  interface{}
		want interface{}
	}{
		{"short text", attr("Color", models.AttributeShortText), "Red", "Red"},
		{"long text", attr("Ingredients", models.AttributeLongText), "Rice, water", "Rice, water"},
		{"rich text keeps markup", attr("Product Description", models.AttributeRichText), "<p>Silky</p>", "<p>Silky</p>"},
		{"number", attr("Warranty", models.AttributeNumber), float64(2), float64(2)},
		{"number int", attr("Warranty", models.AttributeNumber), 3, float64(3)},
		{"numeric string", attr("Items per Package", models.AttributeNumber), "5", float64(5)},
		{"numeric string with spaces", attr("Items per Package", models.AttributeNumber), " 2.5 ", 2.5},
		{"json number", attr("Warranty", models.AttributeNumber), json.Number("12"), float64(12)},
		{"single select member", storage, "Dry Storage", "Dry Storage"},
		{"multiple select members", allergens, []interface{}{"Gluten", "Soy"}, []string{"Gluten", "Soy"}},
		{"multiple select empty", allergens, []interface{}{}, []string{}},
		{"measure string value", weight, map[string]interface{}{"value": "150", "unit": "g"},
			map[string]interface{}{"value": float64(150), "unit": "g"}},
		{"measure keeps unit as given", weight, map[string]interface{}{"value": 1.2, "unit": "kg"},
			map[string]interface{}{"value": 1.2, "unit": "kg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.attr, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		attr    models.Attribute
		raw     interface{}
		wantErr error
	}{
		{"text from number", attr("Color", models.AttributeShortText), 5.0, ErrNotString},
		{"text from array", attr("Ingredients", models.AttributeLongText), []interface{}{"Rice"}, ErrNotString},
		{"rich text from object", attr("Product Description", models.AttributeRichText), map[string]interface{}{"p": "x"}, ErrNotString},
		{"non numeric string", attr("Warranty", models.AttributeNumber), "two years", ErrNotNumber},
		{"empty string number", attr("Warranty", models.AttributeNumber), "", ErrNotNumber},
		{"bool number", attr("Warranty", models.AttributeNumber), true, ErrNotNumber},
		{"NaN string", attr("Warranty", models.AttributeNumber), "NaN", ErrNotNumber},
		{"object number", attr("Warranty", models.AttributeNumber), map[string]interface{}{"value": 1}, ErrNotNumber},
		{"single select outsider", storage, "Fridge", ErrNotOption},
		{"single select wrong type", storage, []interface{}{"Dry Storage"}, ErrNotOption},
		{"multiple select outsider", allergens, []interface{}{"Gluten", "Milk"}, ErrNotOption},
		{"multiple select non string", allergens, []interface{}{"Gluten", 3.0}, ErrNotOptionList},
		{"multiple select scalar", allergens, "Gluten", ErrNotOptionList},
		{"measure missing unit", weight, map[string]interface{}{"value": 150}, ErrNotMeasure},
		{"measure missing value", weight, map[string]interface{}{"unit": "g"}, ErrNotMeasure},
		{"measure bad value", weight, map[string]interface{}{"value": "heavy", "unit": "g"}, ErrNotMeasure},
		{"measure numeric unit", weight, map[string]interface{}{"value": 1, "unit": 5}, ErrNotMeasure},
		{"measure scalar", weight, 150.0, ErrNotMeasure},
		{"null", attr("Color", models.AttributeShortText), nil, ErrNullValue},
		{"unknown type", attr("Date", models.AttributeType("DATE")), "2024-01-01", ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.attr, tt.raw)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)

			_, ok := Coerce(tt.attr, tt.raw)
			assert.False(t, ok)
		})
	}
}

func TestFilterValid_DropsInvalidAndNull(t *testing.T) {
	eligible := []models.Attribute{
		attr("Color", models.AttributeShortText),
		attr("Warranty", models.AttributeNumber),
		storage,
		weight,
		attr("Material", models.AttributeShortText),
	}
	data := map[string]interface{}{
		"Color":                "Black",
		"Warranty":             "n/a",
		"Storage Requirements": "Dry Storage",
		"Item Weight":          nil,
		"Unrequested":          "ignored",
	}

	got, dropped := FilterValid(data, eligible)

	assert.Equal(t, models.AttributeValues{
		"Color":                "Black",
		"Storage Requirements": "Dry Storage",
	}, got)
	assert.Equal(t, []string{"Warranty"}, dropped)
}

func TestValidateBag(t *testing.T) {
	schema := []models.Attribute{attr("Color", models.AttributeShortText), weight}

	t.Run("valid bag is canonicalized", func(t *testing.T) {
		got, problems := ValidateBag(models.AttributeValues{
			"Color":       "Red",
			"Item Weight": map[string]interface{}{"value": "80", "unit": "G"},
		}, schema)
		assert.Empty(t, problems)
		assert.Equal(t, map[string]interface{}{"value": float64(80), "unit": "G"}, got["Item Weight"])
	})

	t.Run("unknown key and bad value are reported", func(t *testing.T) {
		_, problems := ValidateBag(models.AttributeValues{
			"Colour":      "Red",
			"Item Weight": "80g",
		}, schema)
		sort.Strings(problems)
		require.Len(t, problems, 2)
		assert.Contains(t, problems[0], "Colour: no such attribute")
		assert.Contains(t, problems[1], "Item Weight")
	})

	t.Run("null values are removed", func(t *testing.T) {
		got, problems := ValidateBag(models.AttributeValues{"Color": nil}, schema)
		assert.Empty(t, problems)
		assert.Empty(t, got)
	})
}

// ==========================
// Eligibility Tests
// ==========================

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty([]interface{}{}))
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsEmpty(map[string]interface{}{}))

	assert.False(t, IsEmpty("Red"))
	assert.False(t, IsEmpty(float64(0)))
	assert.False(t, IsEmpty(false))
	assert.False(t, IsEmpty([]interface{}{"Gluten"}))
	assert.False(t, IsEmpty(map[string]interface{}{"value": 1.0, "unit": "g"}))
}

func TestEligible(t *testing.T) {
	optional := models.Attribute{Name: "Notes", Type: models.AttributeLongText}
	schema := []models.Attribute{
		attr("Color", models.AttributeShortText),
		attr("Material", models.AttributeShortText),
		attr("Warranty", models.AttributeNumber),
		allergens,
		weight,
		optional,
	}
	current := models.AttributeValues{
		"Color":       "Red",
		"Warranty":    float64(0),
		"Allergens":   []interface{}{},
		"Item Weight": map[string]interface{}{},
	}

	got := Eligible(current, schema)

	names := make([]string, 0, len(got))
	for _, a := range got {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Material", "Allergens", "Item Weight"}, names)
	assert.Len(t, Required(schema), 5)
}

func TestTypes(t *testing.T) {
	types := Types()
	require.Len(t, types, 7)
	assert.Equal(t, models.AttributeShortText, types[0].Type)

	measure := Info(models.AttributeMeasure)
	assert.True(t, measure.RequiresUnit)
	assert.False(t, measure.RequiresOptions)
	assert.True(t, Info(models.AttributeMultipleSelect).RequiresOptions)
}
