// internal/store/attributes.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-enrichment/internal/common/database"
	"catalog-enrichment/internal/models"

	"github.com/lib/pq"
)

const attributeColumns = `id, name, type, unit, options, is_required, is_system_generated, created_at, updated_at`

type AttributeStore struct {
	db *sql.DB
}

func NewAttributeStore(db *sql.DB) *AttributeStore {
	return &AttributeStore{db: db}
}

func scanAttribute(row rowScanner) (*models.Attribute, error) {
	var (
		attr    models.Attribute
		typ     string
		unit    sql.NullString
		options []string
	)
	err := row.Scan(
		&attr.ID, &attr.Name, &typ, &unit, pq.Array(&options),
		&attr.IsRequired, &attr.IsSystemGenerated, &attr.CreatedAt, &attr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	attr.Type = models.AttributeType(typ)
	attr.Unit = unit.String
	if options == nil {
		options = []string{}
	}
	attr.Options = options
	return &attr, nil
}

func nullableUnit(unit string) sql.NullString {
	return sql.NullString{String: unit, Valid: unit != ""}
}

func optionsArray(options []string) interface{} {
	if options == nil {
		options = []string{}
	}
	return pq.Array(options)
}

// List returns every attribute ordered by id.
func (s *AttributeStore) List(ctx context.Context) ([]models.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attributeColumns+` FROM attributes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Attribute{}
	for rows.Next() {
		attr, err := scanAttribute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *attr)
	}
	return out, rows.Err()
}

func (s *AttributeStore) Get(ctx context.Context, id int64) (*models.Attribute, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attributeColumns+` FROM attributes WHERE id = $1`, id)
	attr, err := scanAttribute(row)
	if err != nil {
		return nil, notFound(err)
	}
	return attr, nil
}

// Create inserts attr and fills in its id and timestamps.
func (s *AttributeStore) Create(ctx context.Context, attr *models.Attribute) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attributes (name, type, unit, options, is_required, is_system_generated)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		attr.Name, string(attr.Type), nullableUnit(attr.Unit), optionsArray(attr.Options),
		attr.IsRequired, attr.IsSystemGenerated,
	).Scan(&attr.ID, &attr.CreatedAt, &attr.UpdatedAt)
	if _, dup := database.IsUniqueViolation(err); dup {
		return fmt.Errorf("%w: %s", ErrDuplicateName, attr.Name)
	}
	return err
}

// Update writes attr. When the name changed, product values stored under
// previousName are moved to the new key in the same transaction.
func (s *AttributeStore) Update(ctx context.Context, attr *models.Attribute, previousName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE attributes
		SET name = $2, type = $3, unit = $4, options = $5, is_required = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		attr.ID, attr.Name, string(attr.Type), nullableUnit(attr.Unit), optionsArray(attr.Options), attr.IsRequired,
	).Scan(&attr.CreatedAt, &attr.UpdatedAt)
	if _, dup := database.IsUniqueViolation(err); dup {
		return fmt.Errorf("%w: %s", ErrDuplicateName, attr.Name)
	}
	if err != nil {
		return notFound(err)
	}

	if previousName != "" && previousName != attr.Name {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET attributes = (attributes - $1::text) || jsonb_build_object($2::text, attributes -> $1::text)
			WHERE attributes ? $1::text`,
			previousName, attr.Name)
		if err != nil {
			return fmt.Errorf("rename product attribute key: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes the attribute and strips its key from every product.
func (s *AttributeStore) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var name string
	if err := tx.QueryRowContext(ctx, `DELETE FROM attributes WHERE id = $1 RETURNING name`, id).Scan(&name); err != nil {
		return notFound(err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE products SET attributes = attributes - $1::text
		WHERE attributes ? $1::text`, name); err != nil {
		return fmt.Errorf("strip product attribute key: %w", err)
	}

	return tx.Commit()
}

// UpsertByName inserts attr or refreshes the definition stored under its name.
func (s *AttributeStore) UpsertByName(ctx context.Context, attr *models.Attribute) error {
	return s.db.QueryRowContext(ctx, `
		INSERT INTO attributes (name, type, unit, options, is_required, is_system_generated)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE
		SET type = EXCLUDED.type, unit = EXCLUDED.unit, options = EXCLUDED.options,
		    is_system_generated = EXCLUDED.is_system_generated, updated_at = NOW()
		RETURNING id, is_required, created_at, updated_at`,
		attr.Name, string(attr.Type), nullableUnit(attr.Unit), optionsArray(attr.Options),
		attr.IsRequired, attr.IsSystemGenerated,
	).Scan(&attr.ID, &attr.IsRequired, &attr.CreatedAt, &attr.UpdatedAt)
}
