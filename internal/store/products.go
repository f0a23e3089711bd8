// internal/store/products.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"catalog-enrichment/internal/models"

	"github.com/lib/pq"
)

const productColumns = `id, name, brand, barcode, images, attributes, ai_enriched, created_at, updated_at`

// sortColumns maps accepted sort keys to their column.
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"brand":      "brand",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"updated_at": "updated_at",
	"updatedAt":  "updated_at",
}

// SortColumn resolves a client sort key. An empty key sorts by id.
func SortColumn(field string) (string, bool) {
	if field == "" {
		return "id", true
	}
	col, ok := sortColumns[field]
	return col, ok
}

// SortDirection normalizes order to ASC or DESC.
func SortDirection(order string) (string, bool) {
	switch strings.ToUpper(order) {
	case "", "ASC":
		return "ASC", true
	case "DESC":
		return "DESC", true
	}
	return "", false
}

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var (
		p       models.Product
		barcode sql.NullString
		images  []string
		attrs   []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &barcode, pq.Array(&images), &attrs,
		&p.AIEnriched, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if barcode.Valid {
		p.Barcode = &barcode.String
	}
	if images == nil {
		images = []string{}
	}
	p.Images = images
	p.Attributes = models.AttributeValues{}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes of product %d: %w", p.ID, err)
		}
	}
	return &p, nil
}

func encodeAttributes(values models.AttributeValues) ([]byte, error) {
	if values == nil {
		values = models.AttributeValues{}
	}
	return json.Marshal(values)
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func imagesArray(images []string) interface{} {
	if images == nil {
		images = []string{}
	}
	return pq.Array(images)
}

func (s *ProductStore) queryProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// List returns products matching filter. Unknown sort keys fall back to id.
func (s *ProductStore) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := next(containsPattern(q))
		where = append(where, fmt.Sprintf("(name ILIKE %s OR brand ILIKE %s)", p, p))
	}
	if filter.IDs != nil {
		where = append(where, "id = ANY("+next(pq.Array(filter.IDs))+")")
	}
	if filter.AIEnriched != nil {
		where = append(where, "ai_enriched = "+next(*filter.AIEnriched))
	}

	col, ok := SortColumn(filter.SortField)
	if !ok {
		col = "id"
	}
	dir, ok := SortDirection(filter.SortOrder)
	if !ok {
		dir = "ASC"
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s", col, dir)
	if col != "id" {
		query += ", id ASC"
	}

	return s.queryProducts(ctx, query, args...)
}

func (s *ProductStore) Get(ctx context.Context, id int64) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetMany returns the products with the given ids keyed by id. Missing ids
// are absent from the map.
func (s *ProductStore) GetMany(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	products, err := s.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[int64]models.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Create inserts p and fills in its id and timestamps.
func (s *ProductStore) Create(ctx context.Context, p *models.Product) error {
	attrs, err := encodeAttributes(p.Attributes)
	if err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, brand, barcode, images, attributes, ai_enriched)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Brand, nullableString(p.Barcode), imagesArray(p.Images), attrs, p.AIEnriched,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Update writes the editable fields of p.
func (s *ProductStore) Update(ctx context.Context, p *models.Product) error {
	attrs, err := encodeAttributes(p.Attributes)
	if err != nil {
		return err
	}
	err = s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, brand = $3, barcode = $4, images = $5, attributes = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING ai_enriched, created_at, updated_at`,
		p.ID, p.Name, p.Brand, nullableString(p.Barcode), imagesArray(p.Images), attrs,
	).Scan(&p.AIEnriched, &p.CreatedAt, &p.UpdatedAt)
	return notFound(err)
}

// SaveEnrichment merges AI-filled values into the product's stored bag and
// flags the product. A key is written only while the stored value is still
// empty and the attribute still exists, so edits made while the job ran win.
func (s *ProductStore) SaveEnrichment(ctx context.Context, id int64, values models.AttributeValues) error {
	attrs, err := encodeAttributes(values)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products p
		SET attributes = p.attributes || COALESCE((
				SELECT jsonb_object_agg(f.key, f.value)
				FROM jsonb_each($2::jsonb) f
				JOIN attributes a ON a.name = f.key
				WHERE p.attributes -> f.key IS NULL
				   OR p.attributes -> f.key IN ('null'::jsonb, '""'::jsonb, '[]'::jsonb, '{}'::jsonb)
			), '{}'::jsonb),
			ai_enriched = TRUE,
			updated_at = NOW()
		WHERE p.id = $1`, id, attrs)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ProductStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}
