package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"catalog-enrichment/internal/attributes"
	apperrors "catalog-enrichment/internal/common/errors"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/common/validation"
	"catalog-enrichment/internal/models"
	"catalog-enrichment/internal/store"

	"github.com/labstack/echo/v4"
)

const (
	msgAttributeNotFound = "Attribute not found"
	msgDuplicateName     = "An attribute with this name already exists"
	msgInvalidAttribute  = "Invalid attribute"
)

type attributePayload struct {
	Name       string               `json:"name"`
	Type       models.AttributeType `json:"type"`
	Unit       *string              `json:"unit"`
	Options    []string             `json:"options"`
	IsRequired bool                 `json:"isRequired"`
}

type attributePatch struct {
	Name       *string               `json:"name"`
	Type       *models.AttributeType `json:"type"`
	Unit       json.RawMessage       `json:"unit"`
	Options    *[]string             `json:"options"`
	IsRequired *bool                 `json:"isRequired"`
}

type attributeHandler struct {
	attrs  AttributeRepository
	logger logger.Logger
}

func (h *attributeHandler) list(c echo.Context) error {
	attrs, err := h.attrs.List(c.Request().Context())
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("list attributes", err)
	}
	return c.JSON(http.StatusOK, attrs)
}

func (h *attributeHandler) types(c echo.Context) error {
	return c.JSON(http.StatusOK, attributes.Types())
}

func (h *attributeHandler) get(c echo.Context) error {
	id, err := parseID(c, "attribute")
	if err != nil {
		return err
	}
	attr, err := h.attrs.Get(c.Request().Context(), id)
	if err != nil {
		return attributeError("get attribute", err)
	}
	return c.JSON(http.StatusOK, attr)
}

func (h *attributeHandler) create(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := validateBody(validation.AttributeCreate, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		switch {
		case missing(result, "name", "type") || result.HasErrors("name"):
			return apperrors.NewInvalidRequestError(models.ErrAttributeNameRequired.Error(), "")
		case result.HasErrors("type"):
			return apperrors.NewInvalidAttributeTypeError(models.AttributeTypeNames())
		default:
			return apperrors.NewValidationFailedError(msgInvalidAttribute, result.GetErrorMessages())
		}
	}

	var payload attributePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperrors.NewInvalidRequestError(msgInvalidAttribute, err.Error())
	}

	attr := &models.Attribute{
		Name:       strings.TrimSpace(payload.Name),
		Type:       payload.Type,
		Options:    payload.Options,
		IsRequired: payload.IsRequired,
	}
	if payload.Unit != nil {
		attr.Unit = strings.TrimSpace(*payload.Unit)
	}
	if attr.Options == nil {
		attr.Options = []string{}
	}
	if err := attr.Validate(); err != nil {
		return apperrors.NewInvalidRequestError(err.Error(), "")
	}

	if err := h.attrs.Create(c.Request().Context(), attr); err != nil {
		return attributeError("create attribute", err)
	}

	h.logger.Info("attribute created", map[string]interface{}{"attributeId": attr.ID, "name": attr.Name})
	return c.JSON(http.StatusCreated, attr)
}

func (h *attributeHandler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c, "attribute")
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := validateBody(validation.AttributeUpdate, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		if result.HasErrors("type") {
			return apperrors.NewInvalidAttributeTypeError(models.AttributeTypeNames())
		}
		return apperrors.NewValidationFailedError(msgInvalidAttribute, result.GetErrorMessages())
	}

	var patch attributePatch
	if err := json.Unmarshal(body, &patch); err != nil {
		return apperrors.NewInvalidRequestError(msgInvalidAttribute, err.Error())
	}

	attr, err := h.attrs.Get(ctx, id)
	if err != nil {
		return attributeError("get attribute", err)
	}
	previousName := attr.Name

	if patch.Name != nil {
		attr.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Type != nil {
		attr.Type = *patch.Type
	}
	if len(patch.Unit) > 0 {
		var unit *string
		if err := json.Unmarshal(patch.Unit, &unit); err != nil {
			return apperrors.NewInvalidRequestError(msgInvalidAttribute, err.Error())
		}
		attr.Unit = ""
		if unit != nil {
			attr.Unit = strings.TrimSpace(*unit)
		}
	}
	if patch.Options != nil {
		attr.Options = *patch.Options
		if attr.Options == nil {
			attr.Options = []string{}
		}
	}
	if patch.IsRequired != nil {
		attr.IsRequired = *patch.IsRequired
	}
	if err := attr.Validate(); err != nil {
		return apperrors.NewInvalidRequestError(err.Error(), "")
	}

	if err := h.attrs.Update(ctx, attr, previousName); err != nil {
		return attributeError("update attribute", err)
	}
	return c.JSON(http.StatusOK, attr)
}

func (h *attributeHandler) delete(c echo.Context) error {
	id, err := parseID(c, "attribute")
	if err != nil {
		return err
	}
	if err := h.attrs.Delete(c.Request().Context(), id); err != nil {
		return attributeError("delete attribute", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func attributeError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewResourceNotFoundError(msgAttributeNotFound, "")
	case errors.Is(err, store.ErrDuplicateName):
		return apperrors.NewDuplicateResourceError(msgDuplicateName, err.Error())
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}
