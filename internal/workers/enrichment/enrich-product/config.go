// internal/workers/enrichment/enrich-product/config.go
package enrichproduct

import (
	"time"

	"catalog-enrichment/internal/common/config"
)

type Config struct {
	Model       string
	VisionModel string
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Model:       "gpt-4",
		VisionModel: "gpt-4o",
		Timeout:     60 * time.Second,
	}
}

// NewConfig derives the handler settings from the genai config section.
func NewConfig(cfg config.GenAIConfig) *Config {
	c := LoadConfig()
	if cfg.Model != "" {
		c.Model = cfg.Model
	}
	if cfg.VisionModel != "" {
		c.VisionModel = cfg.VisionModel
	}
	if cfg.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.Timeout)
	}
	return c
}
