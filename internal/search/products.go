// Package search keeps an Elasticsearch index of product names and brands
// for the catalog's free-text filter.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"catalog-enrichment/internal/common/database"
	"catalog-enrichment/internal/common/logger"
	"catalog-enrichment/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultIndex = "products"
	maxHits      = 1000
)

var ErrSearchFailed = errors.New("SEARCH_FAILED")

const indexMapping = `{
  "mappings": {
    "properties": {
      "name":  {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "brand": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "barcode": {"type": "keyword"},
      "aiEnriched": {"type": "boolean"}
    }
  }
}`

type document struct {
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Barcode    *string `json:"barcode,omitempty"`
	AIEnriched bool    `json:"aiEnriched"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

// ProductIndex mirrors product name and brand into Elasticsearch.
type ProductIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewProductIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *ProductIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &ProductIndex{
		client: es.Client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (p *ProductIndex) EnsureIndex(ctx context.Context) error {
	res, err := p.client.Indices.Exists([]string{p.index}, p.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index: %v", ErrSearchFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: check index: %s", ErrSearchFailed, res.Status())
	}

	res, err = p.client.Indices.Create(p.index,
		p.client.Indices.Create.WithContext(ctx),
		p.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrSearchFailed, res.Status())
	}
	p.logger.Info("created search index", nil)
	return nil
}

// Index writes or replaces the document for product.
func (p *ProductIndex) Index(ctx context.Context, product *models.Product) error {
	body, err := json.Marshal(document{
		Name:       product.Name,
		Brand:      product.Brand,
		Barcode:    product.Barcode,
		AIEnriched: product.AIEnriched,
	})
	if err != nil {
		return fmt.Errorf("marshal product %d: %w", product.ID, err)
	}

	res, err := p.client.Index(p.index, bytes.NewReader(body),
		p.client.Index.WithContext(ctx),
		p.client.Index.WithDocumentID(strconv.FormatInt(product.ID, 10)),
		p.client.Index.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: index product %d: %v", ErrSearchFailed, product.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: index product %d: %s", ErrSearchFailed, product.ID, res.Status())
	}
	return nil
}

// Sync indexes every product and returns how many were written.
func (p *ProductIndex) Sync(ctx context.Context, products []models.Product) (int, error) {
	for i := range products {
		if err := p.Index(ctx, &products[i]); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

// Delete removes a product document. A missing document is not an error.
func (p *ProductIndex) Delete(ctx context.Context, id int64) error {
	res, err := p.client.Delete(p.index, strconv.FormatInt(id, 10), p.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: delete product %d: %v", ErrSearchFailed, id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: delete product %d: %s", ErrSearchFailed, id, res.Status())
	}
	return nil
}

// Search returns ids of products whose name or brand contains q, ignoring case.
func (p *ProductIndex) Search(ctx context.Context, q string) ([]int64, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, err
	}

	res, err := p.client.Search(
		p.client.Search.WithContext(ctx),
		p.client.Search.WithIndex(p.index),
		p.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, errorReason(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	ids := make([]int64, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			p.logger.Warn("skipping search hit with non-numeric id", map[string]interface{}{"id": hit.ID})
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func buildQuery(q string) map[string]interface{} {
	pattern := "*" + escapeWildcard(q) + "*"
	should := []map[string]interface{}{
		{"multi_match": map[string]interface{}{
			"query":  q,
			"fields": []string{"name", "brand"},
			"type":   "phrase_prefix",
		}},
	}
	for _, field := range []string{"name.keyword", "brand.keyword"} {
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{
				field: map[string]interface{}{"value": pattern, "case_insensitive": true},
			},
		})
	}
	return map[string]interface{}{
		"size":    maxHits,
		"_source": false,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"should": should, "minimum_should_match": 1},
		},
	}
}

func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

func errorReason(res *esapi.Response) string {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var body struct {
		Error struct {
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error.Reason != "" {
		return fmt.Sprintf("%s: %s", res.Status(), body.Error.Reason)
	}
	return res.Status()
}
