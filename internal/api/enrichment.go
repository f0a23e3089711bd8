package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apperrors "catalog-enrichment/internal/common/errors"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/validation"
	processenrichmentjob "catalog-enrichment/internal/workers/enrichment/process-enrichment-job"

	"github.com/labstack/echo/v4"
)

const msgJobNotFound = "Enrichment job not found"

type enrichmentRequest struct {
	ProductIDs []int64 `json:"productIds"`
}

type enrichmentStarted struct {
	JobID   int64  `json:"jobId"`
	Message string `json:"message"`
}

type enrichmentHandler struct {
	jobs   EnrichmentService
	logger logger.Logger
}

func (h *enrichmentHandler) start(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := validateBody(validation.EnrichmentRequest, body)
	if err != nil {
		return err
	}
	msgRequired := processenrichmentjob.ErrNoProducts.Error()
	if !result.Valid {
		return apperrors.NewInvalidRequestError(msgRequired, strings.Join(result.GetErrorMessages(), "; "))
	}

	var req enrichmentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return apperrors.NewInvalidRequestError(msgRequired, err.Error())
	}

	job, err := h.jobs.Submit(c.Request().Context(), req.ProductIDs)
	switch {
	case errors.Is(err, processenrichmentjob.ErrNoProducts):
		return apperrors.NewInvalidRequestError(msgRequired, "")
	case errors.Is(err, processenrichmentjob.ErrPoolClosed):
		var jobID int64
		if job != nil {
			jobID = job.ID
		}
		return apperrors.NewEnrichmentUnavailableError(jobID)
	case err != nil:
		return apperrors.NewQueryExecutionFailedError("create enrichment job", err)
	}

	return c.JSON(http.StatusAccepted, enrichmentStarted{
		JobID:   job.ID,
		Message: "Enrichment job started",
	})
}

func (h *enrichmentHandler) status(c echo.Context) error {
	id, err := parseID(c, "job")
	if err != nil {
		return err
	}
	job, err := h.jobs.Query(c.Request().Context(), id)
	if errors.Is(err, processenrichmentjob.ErrJobNotFound) {
		return apperrors.NewResourceNotFoundError(msgJobNotFound, "")
	}
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("get enrichment job", err)
	}
	return c.JSON(http.StatusOK, job)
}
