// internal/workers/enrichment/enrich-product/prompt.go
package enrichproduct

import (
	"fmt"
	"net/url"
	"strings"

	"catalog-enrichment/internal/attributes"
	"catalog-enrichment/internal/models"
)

const systemPrompt = "You are a product data specialist who extracts and infers product attributes from basic information. " +
	"Respond with a valid JSON object containing only the requested attributes. " +
	"Be accurate and realistic in your assessments."

const exampleResponse = `{
  "Item Weight": { "value": 150, "unit": "g" },
  "Ingredients": ["Wheat Flour", "Sugar", "Salt"],
  "Product Description": "<p>This is a premium product...</p>",
  "Storage Requirements": "Dry Storage",
  "Items per Package": 5
}`

// ValidImages keeps absolute http(s) URLs with a host and data:image URIs.
func ValidImages(images []string) []string {
	var out []string
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(img), "data:image/") {
			out = append(out, img)
			continue
		}
		u, err := url.Parse(img)
		if err != nil || u.Host == "" {
			continue
		}
		if u.Scheme == "http" || u.Scheme == "https" {
			out = append(out, img)
		}
	}
	return out
}

func describeAttribute(attr models.Attribute) string {
	line := fmt.Sprintf("- %s (Type: %s)", attr.Name, attr.Type)
	if attr.Unit != "" {
		line += fmt.Sprintf(" with unit: %s", attr.Unit)
	}
	if len(attr.Options) > 0 {
		line += fmt.Sprintf(" with options: [%s]", strings.Join(attr.Options, ", "))
	}
	return line
}

// typeRules renders one line per distinct rule, joining types that share it.
func typeRules() []string {
	var (
		lines []string
		group []string
		rule  string
	)
	flush := func() {
		if len(group) > 0 {
			lines = append(lines, fmt.Sprintf("- For %s: %s", strings.Join(group, " and "), rule))
		}
	}
	for _, info := range attributes.Types() {
		if info.PromptRule == rule {
			group = append(group, string(info.Type))
			continue
		}
		flush()
		group = []string{string(info.Type)}
		rule = info.PromptRule
	}
	flush()
	return lines
}

// BuildPrompt renders the user message asking for the given attributes.
func BuildPrompt(product models.Product, eligible []models.Attribute, images []string) string {
	barcode := "Unknown"
	if product.Barcode != nil && *product.Barcode != "" {
		barcode = *product.Barcode
	}
	imageList := "None"
	if len(images) > 0 {
		refs := make([]string, len(images))
		for i, img := range images {
			refs[i] = img
			if strings.HasPrefix(strings.ToLower(img), "data:") {
				refs[i] = fmt.Sprintf("inline image %d", i+1)
			}
		}
		imageList = strings.Join(refs, ", ")
	}

	attrLines := make([]string, len(eligible))
	for i, attr := range eligible {
		attrLines[i] = describeAttribute(attr)
	}

	var b strings.Builder
	b.WriteString("I need to enrich the following product with additional attributes:\n\n")
	fmt.Fprintf(&b, "Product Name: %s\nBrand: %s\nBarcode: %s\nProduct Images: %s\n\n",
		product.Name, product.Brand, barcode, imageList)
	b.WriteString("Please extract or infer the following attributes:\n")
	b.WriteString(strings.Join(attrLines, "\n"))
	b.WriteString("\n\nRespond with a single flat JSON object keyed by exactly these attribute names. ")
	b.WriteString("For each attribute, follow these rules:\n")
	b.WriteString(strings.Join(typeRules(), "\n"))
	b.WriteString("\n\nExample response format:\n")
	b.WriteString(exampleResponse)
	b.WriteString("\n\nBe realistic and accurate based on the product information provided. ")
	b.WriteString("If you're absolutely uncertain about an attribute, use null.\n")
	return b.String()
}
