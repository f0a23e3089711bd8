package attributes

import "catalog-enrichment/internal/models"

// TypeInfo describes how a type is edited and what values it stores.
type TypeInfo struct {
	Type            models.AttributeType `json:"type"`
	Label           string               `json:"label"`
	RequiresUnit    bool                 `json:"requiresUnit"`
	RequiresOptions bool                 `json:"requiresOptions"`
	ValueShape      string               `json:"valueShape"`
	PromptRule      string               `json:"-"`
}

var typeInfos = map[models.AttributeType]TypeInfo{
	models.AttributeShortText: {
		Label: "Short text", ValueShape: "string",
		PromptRule: "Provide a string value",
	},
	models.AttributeLongText: {
		Label: "Long text", ValueShape: "string",
		PromptRule: "Provide a string value",
	},
	models.AttributeRichText: {
		Label: "Rich text", ValueShape: "string (HTML)",
		PromptRule: "Provide HTML content as a string",
	},
	models.AttributeNumber: {
		Label: "Number", ValueShape: "number",
		PromptRule: "Provide a numeric value",
	},
	models.AttributeSingleSelect: {
		Label: "Single select", RequiresOptions: true, ValueShape: "one of options",
		PromptRule: "Select one option from the provided list",
	},
	models.AttributeMultipleSelect: {
		Label: "Multiple select", RequiresOptions: true, ValueShape: "array of options",
		PromptRule: "Select appropriate options from the provided list as an array",
	},
	models.AttributeMeasure: {
		Label: "Measure", RequiresUnit: true, ValueShape: `{"value": number, "unit": string}`,
		PromptRule: `Provide an object with "value" (number) and "unit" properties`,
	},
}

// Types returns metadata for every attribute type in display order.
func Types() []TypeInfo {
	out := make([]TypeInfo, 0, len(models.AttributeTypes))
	for _, t := range models.AttributeTypes {
		out = append(out, Info(t))
	}
	return out
}

// Info returns metadata for one type.
func Info(t models.AttributeType) TypeInfo {
	info := typeInfos[t]
	info.Type = t
	return info
}
