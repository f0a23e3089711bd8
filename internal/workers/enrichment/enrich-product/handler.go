// internal/workers/enrichment/enrich-product/handler.go
package enrichproduct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-enrichment/internal/attributes"
	apperrors "catalog-enrichment/internal/common/errors"
	"catalog-enrichment/internal/common/genai"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/metrics"
)

const (
	TaskType = "enrich-product"
)

var (
	ErrEmptyResponse = apperrors.NewAIResponseError("AI service returned empty response")
	ErrInvalidJSON   = apperrors.NewAIResponseError("Failed to parse AI response as JSON")
)

// Handler asks the AI service for a product's missing required attributes
// and merges the values that pass type validation into its bag.
type Handler struct {
	config *Config
	ai     genai.Completer
	logger logger.Logger
}

func NewHandler(config *Config, ai genai.Completer, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		ai:     ai,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	product := input.Product
	current := product.Attributes.Clone()

	eligible := attributes.Eligible(current, input.Attributes)
	if len(eligible) == 0 {
		h.logger.Debug("nothing to enrich", map[string]interface{}{"productId": product.ID})
		return &Output{Attributes: current, Skipped: true}, nil
	}

	images := ValidImages(product.Images)
	req := genai.CompletionRequest{
		Model:  h.config.Model,
		System: systemPrompt,
		Prompt: BuildPrompt(product, eligible, images),
		JSON:   true,
	}
	mode := ModeText
	if len(images) > 0 {
		mode = ModeVision
		req.Model = h.config.VisionModel
		req.Images = images
	}

	content, err := h.complete(ctx, req, mode)
	if err != nil {
		return nil, err
	}

	data, err := parseResponse(content)
	if err != nil {
		metrics.AIRequestsTotal.WithLabelValues(string(mode), "invalid").Inc()
		return nil, err
	}

	validated, dropped := attributes.FilterValid(data, eligible)
	if len(dropped) > 0 {
		h.logger.Debug("dropped invalid AI values", map[string]interface{}{
			"productId":  product.ID,
			"attributes": dropped,
		})
	}

	filled := make([]string, 0, len(validated))
	for _, attr := range eligible {
		if v, ok := validated[attr.Name]; ok {
			current[attr.Name] = v
			filled = append(filled, attr.Name)
		}
	}

	metrics.AIRequestsTotal.WithLabelValues(string(mode), "success").Inc()
	h.logger.Info("product enriched", map[string]interface{}{
		"productId": product.ID,
		"mode":      mode,
		"requested": len(eligible),
		"filled":    len(filled),
	})

	return &Output{
		Attributes: current,
		Filled:     filled,
		Dropped:    dropped,
		Mode:       mode,
	}, nil
}

func (h *Handler) complete(ctx context.Context, req genai.CompletionRequest, mode Mode) (string, error) {
	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := h.ai.Complete(ctx, req)
	metrics.AIRequestDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, genai.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			metrics.AIRequestsTotal.WithLabelValues(string(mode), "timeout").Inc()
			return "", apperrors.NewAITimeoutError(h.config.Timeout)
		}
		metrics.AIRequestsTotal.WithLabelValues(string(mode), "error").Inc()
		return "", apperrors.NewAIServiceError(err)
	}
	return content, nil
}

// parseResponse decodes the completion into a flat JSON object.
func parseResponse(content string) (map[string]interface{}, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil || data == nil {
		return nil, ErrInvalidJSON
	}
	return data, nil
}
