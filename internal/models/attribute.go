// internal/models/attribute.go
package models

import (
	"errors"
	"strings"
	"time"
)

// AttributeType is the declared value type of an attribute.
type AttributeType string

const (
	AttributeShortText      AttributeType = "SHORT_TEXT"
	AttributeLongText       AttributeType = "LONG_TEXT"
	AttributeRichText       AttributeType = "RICH_TEXT"
	AttributeNumber         AttributeType = "NUMBER"
	AttributeSingleSelect   AttributeType = "SINGLE_SELECT"
	AttributeMultipleSelect AttributeType = "MULTIPLE_SELECT"
	AttributeMeasure        AttributeType = "MEASURE"
)

// AttributeTypes lists every supported type in display order.
var AttributeTypes = []AttributeType{
	AttributeShortText,
	AttributeLongText,
	AttributeRichText,
	AttributeNumber,
	AttributeSingleSelect,
	AttributeMultipleSelect,
	AttributeMeasure,
}

var (
	ErrMeasureUnitRequired   = errors.New("Unit is required for MEASURE type attributes")
	ErrSelectOptionsRequired = errors.New("Options are required for SELECT type attributes")
	ErrAttributeNameRequired = errors.New("Name and type are required")
)

// Valid reports whether t is one of the supported types.
func (t AttributeType) Valid() bool {
	for _, known := range AttributeTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t AttributeType) IsText() bool {
	return t == AttributeShortText || t == AttributeLongText || t == AttributeRichText
}

func (t AttributeType) IsSelect() bool {
	return t == AttributeSingleSelect || t == AttributeMultipleSelect
}

func (t AttributeType) RequiresUnit() bool {
	return t == AttributeMeasure
}

// AttributeTypeNames returns the type names as strings.
func AttributeTypeNames() []string {
	names := make([]string, len(AttributeTypes))
	for i, t := range AttributeTypes {
		names[i] = string(t)
	}
	return names
}

// Attribute is a typed schema field that products carry values for.
type Attribute struct {
	ID                int64         `json:"id"`
	Name              string        `json:"name"`
	Type              AttributeType `json:"type"`
	Unit              string        `json:"unit,omitempty"`
	Options           []string      `json:"options"`
	IsRequired        bool          `json:"isRequired"`
	IsSystemGenerated bool          `json:"isSystemGenerated"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// Validate checks the attribute invariants. The type itself must already be valid.
func (a *Attribute) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrAttributeNameRequired
	}
	if a.Type.RequiresUnit() && strings.TrimSpace(a.Unit) == "" {
		return ErrMeasureUnitRequired
	}
	if a.Type.IsSelect() && len(a.Options) == 0 {
		return ErrSelectOptionsRequired
	}
	return nil
}

// HasOption reports whether v is one of the attribute's options.
func (a *Attribute) HasOption(v string) bool {
	for _, o := range a.Options {
		if o == v {
			return true
		}
	}
	return false
}
