package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
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
	msgProductNotFound     = "Product not found"
	msgNameBrandRequired   = "Name and brand are required"
	msgInvalidProduct      = "Invalid product"
	msgInvalidProductAttrs = "Invalid product attributes"
)

type productPayload struct {
	Name       string                 `json:"name"`
	Brand      string                 `json:"brand"`
	Barcode    *string                `json:"barcode"`
	Images     []string               `json:"images"`
	Attributes models.AttributeValues `json:"attributes"`
}

// productPatch distinguishes absent fields from explicit nulls for barcode.
type productPatch struct {
	Name       *string                 `json:"name"`
	Brand      *string                 `json:"brand"`
	Barcode    json.RawMessage         `json:"barcode"`
	Images     *[]string               `json:"images"`
	Attributes *models.AttributeValues `json:"attributes"`
}

type productHandler struct {
	products ProductRepository
	attrs    AttributeRepository
	search   ProductSearch
	logger   logger.Logger
}

func (h *productHandler) list(c echo.Context) error {
	ctx := c.Request().Context()

	q := strings.TrimSpace(c.QueryParam("q"))
	filter := models.ProductFilter{
		Query:     q,
		SortField: strings.TrimSpace(c.QueryParam("sort")),
		SortOrder: strings.TrimSpace(c.QueryParam("order")),
	}
	if raw := c.QueryParam("aiEnriched"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return apperrors.NewInvalidRequestError("aiEnriched must be true or false", raw)
		}
		filter.AIEnriched = &v
	}

	if q != "" && h.search != nil {
		ids, err := h.search.Search(ctx, q)
		if err != nil {
			searchErr := apperrors.NewSearchQueryFailedError(err)
			h.logger.Warn("search index query failed, using database filter", map[string]interface{}{
				"code":      searchErr.Code,
				"retryable": searchErr.Retryable,
				"error":     searchErr.Details,
			})
		} else {
			if len(ids) == 0 {
				return c.JSON(http.StatusOK, []models.Product{})
			}
			filter.Query = ""
			filter.IDs = ids
		}
	}

	products, err := h.products.List(ctx, filter)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("list products", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *productHandler) get(c echo.Context) error {
	id, err := parseID(c, "product")
	if err != nil {
		return err
	}
	p, err := h.products.Get(c.Request().Context(), id)
	if err != nil {
		return productError("get product", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *productHandler) create(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := validateBody(validation.ProductCreate, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		if result.HasErrors("name") || result.HasErrors("brand") {
			return apperrors.NewInvalidRequestError(msgNameBrandRequired, "")
		}
		return apperrors.NewValidationFailedError(msgInvalidProduct, result.GetErrorMessages())
	}

	var payload productPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperrors.NewInvalidRequestError(msgInvalidProduct, err.Error())
	}
	name := strings.TrimSpace(payload.Name)
	brand := strings.TrimSpace(payload.Brand)
	if name == "" || brand == "" {
		return apperrors.NewInvalidRequestError(msgNameBrandRequired, "")
	}

	values, err := h.checkAttributes(ctx, payload.Attributes)
	if err != nil {
		return err
	}

	p := &models.Product{
		Name:       name,
		Brand:      brand,
		Barcode:    payload.Barcode,
		Images:     payload.Images,
		Attributes: values,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := h.products.Create(ctx, p); err != nil {
		return apperrors.NewQueryExecutionFailedError("create product", err)
	}

	h.index(ctx, p)
	return c.JSON(http.StatusCreated, p)
}

func (h *productHandler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c, "product")
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	result, err := validateBody(validation.ProductUpdate, body)
	if err != nil {
		return err
	}
	if !result.Valid {
		return apperrors.NewValidationFailedError(msgInvalidProduct, result.GetErrorMessages())
	}

	var patch productPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		return apperrors.NewInvalidRequestError(msgInvalidProduct, err.Error())
	}

	p, err := h.products.Get(ctx, id)
	if err != nil {
		return productError("get product", err)
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Brand != nil {
		p.Brand = strings.TrimSpace(*patch.Brand)
	}
	if p.Name == "" || p.Brand == "" {
		return apperrors.NewInvalidRequestError(msgNameBrandRequired, "")
	}
	if len(patch.Barcode) > 0 {
		var barcode *string
		if err := json.Unmarshal(patch.Barcode, &barcode); err != nil {
			return apperrors.NewInvalidRequestError(msgInvalidProduct, err.Error())
		}
		p.Barcode = barcode
	}
	if patch.Images != nil {
		p.Images = *patch.Images
		if p.Images == nil {
			p.Images = []string{}
		}
	}
	if patch.Attributes != nil {
		values, err := h.checkAttributes(ctx, *patch.Attributes)
		if err != nil {
			return err
		}
		p.Attributes = values
	}

	if err := h.products.Update(ctx, p); err != nil {
		return productError("update product", err)
	}

	h.index(ctx, p)
	return c.JSON(http.StatusOK, p)
}

func (h *productHandler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c, "product")
	if err != nil {
		return err
	}
	if err := h.products.Delete(ctx, id); err != nil {
		return productError("delete product", err)
	}

	if h.search != nil {
		if err := h.search.Delete(ctx, id); err != nil {
			h.logger.Warn("failed to remove product from search index", map[string]interface{}{
				"productId": id,
				"error":     err.Error(),
			})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// checkAttributes validates a client-written bag against the current schema.
func (h *productHandler) checkAttributes(ctx context.Context, bag models.AttributeValues) (models.AttributeValues, error) {
	if len(bag) == 0 {
		return models.AttributeValues{}, nil
	}
	schema, err := h.attrs.List(ctx)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list attributes", err)
	}
	values, problems := attributes.ValidateBag(bag, schema)
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, apperrors.NewValidationFailedError(msgInvalidProductAttrs, problems)
	}
	return values, nil
}

func (h *productHandler) index(ctx context.Context, p *models.Product) {
	if h.search == nil {
		return
	}
	if err := h.search.Index(ctx, p); err != nil {
		h.logger.Warn("failed to index product", map[string]interface{}{
			"productId": p.ID,
			"error":     err.Error(),
		})
	}
}

func productError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewResourceNotFoundError(msgProductNotFound, "")
	}
	return apperrors.NewQueryExecutionFailedError(op, err)
}
