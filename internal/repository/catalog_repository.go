package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/openpim/importer/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// catalogRepository implements CatalogRepository over postgres.
type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository creates a postgres-backed catalog repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

// ListFamilies returns all families of the organization.
func (r *catalogRepository) ListFamilies(ctx context.Context, organizationID uuid.UUID) ([]domain.Family, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, code, label, created_at
		FROM families WHERE organization_id = $1`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var families []domain.Family
	for rows.Next() {
		var family domain.Family
		if err := rows.Scan(&family.ID, &family.OrganizationID, &family.Code, &family.Label, &family.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

// ListFamilyAttributeCodes returns the family code -> attribute codes
// association for the whole organization in one query.
func (r *catalogRepository) ListFamilyAttributeCodes(ctx context.Context, organizationID uuid.UUID) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT f.code, a.code
		FROM family_attributes fa
		JOIN families f ON f.id = fa.family_id
		JOIN attributes a ON a.id = fa.attribute_id
		WHERE f.organization_id = $1`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list family attributes: %w", err)
	}
	defer rows.Close()

	index := make(map[string][]string)
	for rows.Next() {
		var familyCode, attributeCode string
		if err := rows.Scan(&familyCode, &attributeCode); err != nil {
			return nil, fmt.Errorf("failed to scan family attribute: %w", err)
		}
		index[familyCode] = append(index[familyCode], attributeCode)
	}
	return index, rows.Err()
}

// ListAttributes returns all attributes of the organization.
func (r *catalogRepository) ListAttributes(ctx context.Context, organizationID uuid.UUID) ([]domain.Attribute, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, code, label, localizable, scopable, created_at
		FROM attributes WHERE organization_id = $1`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attributes: %w", err)
	}
	defer rows.Close()

	var attributes []domain.Attribute
	for rows.Next() {
		var attribute domain.Attribute
		if err := rows.Scan(&attribute.ID, &attribute.OrganizationID, &attribute.Code, &attribute.Label,
			&attribute.Localizable, &attribute.Scopable, &attribute.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attributes = append(attributes, attribute)
	}
	return attributes, rows.Err()
}

// ListLocales returns all locales of the organization.
func (r *catalogRepository) ListLocales(ctx context.Context, organizationID uuid.UUID) ([]domain.Locale, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, code FROM locales WHERE organization_id = $1`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list locales: %w", err)
	}
	defer rows.Close()

	var locales []domain.Locale
	for rows.Next() {
		var locale domain.Locale
		if err := rows.Scan(&locale.ID, &locale.OrganizationID, &locale.Code); err != nil {
			return nil, fmt.Errorf("failed to scan locale: %w", err)
		}
		locales = append(locales, locale)
	}
	return locales, rows.Err()
}

// ListChannels returns all channels of the organization.
func (r *catalogRepository) ListChannels(ctx context.Context, organizationID uuid.UUID) ([]domain.Channel, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, code FROM channels WHERE organization_id = $1`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var channel domain.Channel
		if err := rows.Scan(&channel.ID, &channel.OrganizationID, &channel.Code); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

// GetCategoryChild looks up a category by name under a parent (nil parent
// means a root category).
func (r *catalogRepository) GetCategoryChild(ctx context.Context, organizationID uuid.UUID, parentID *uuid.UUID, name string) (domain.Category, bool, error) {
	var row pgx.Row
	if parentID == nil {
		row = r.pool.QueryRow(ctx, `
			SELECT id, organization_id, parent_id, name FROM categories
			WHERE organization_id = $1 AND parent_id IS NULL AND name = $2`,
			organizationID, name,
		)
	} else {
		row = r.pool.QueryRow(ctx, `
			SELECT id, organization_id, parent_id, name FROM categories
			WHERE organization_id = $1 AND parent_id = $2 AND name = $3`,
			organizationID, *parentID, name,
		)
	}

	var category domain.Category
	var parent pgtype.UUID
	err := row.Scan(&category.ID, &category.OrganizationID, &parent, &category.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Category{}, false, nil
		}
		return domain.Category{}, false, fmt.Errorf("failed to get category: %w", err)
	}
	if parent.Valid {
		id := uuid.UUID(parent.Bytes)
		category.ParentID = &id
	}
	return category, true, nil
}

// CreateCategory inserts a category node.
func (r *catalogRepository) CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO categories (id, organization_id, parent_id, name)
		VALUES ($1, $2, $3, $4)`,
		category.ID, category.OrganizationID, category.ParentID, category.Name,
	)
	if err != nil {
		return domain.Category{}, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

// GetProductBySKU looks up a product by (organization, sku).
func (r *catalogRepository) GetProductBySKU(ctx context.Context, organizationID uuid.UUID, sku string) (domain.Product, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, organization_id, sku, name, description, brand, barcode, category_id, family_id,
			is_active, created_at, updated_at
		FROM products WHERE organization_id = $1 AND sku = $2`,
		organizationID, sku,
	)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, false, nil
		}
		return domain.Product{}, false, fmt.Errorf("failed to get product by sku: %w", err)
	}
	return product, true, nil
}

// WithinRowTx runs fn inside one transaction. Any error or panic rolls the
// row back.
func (r *catalogRepository) WithinRowTx(ctx context.Context, fn func(tx RowTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin row transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logrus.WithError(rbErr).Error("failed to rollback row transaction")
			}
			panic(p)
		}
	}()

	if err := fn(&rowTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("row transaction error: %v, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit row transaction: %w", err)
	}
	return nil
}

// rowTx implements RowTx over a pgx transaction.
type rowTx struct {
	tx pgx.Tx
}

// UpsertProduct inserts or fully updates the product row keyed by
// (organization, sku). The caller is responsible for having merged fields
// beforehand; the database-level uniqueness constraint is the backstop
// against concurrent double-creation.
func (t *rowTx) UpsertProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO products (
			id, organization_id, sku, name, description, brand, barcode, category_id, family_id,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (organization_id, sku) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			brand = EXCLUDED.brand,
			barcode = EXCLUDED.barcode,
			category_id = EXCLUDED.category_id,
			family_id = EXCLUDED.family_id,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, organization_id, sku, name, description, brand, barcode, category_id, family_id,
			is_active, created_at, updated_at`,
		product.ID, product.OrganizationID, product.SKU, product.Name, product.Description,
		product.Brand, product.Barcode, product.CategoryID, product.FamilyID, product.IsActive,
	)

	persisted, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to upsert product: %w", err)
	}
	return persisted, nil
}

// ReplaceTags swaps the product's tag set for the given one.
func (t *rowTx) ReplaceTags(ctx context.Context, productID uuid.UUID, tags []string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM product_tags WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear product tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO product_tags (product_id, tag) VALUES ($1, $2)`,
			productID, tag,
		); err != nil {
			return fmt.Errorf("failed to insert product tag: %w", err)
		}
	}
	return nil
}

// UpsertAttributeValue writes one attribute value keyed by
// (organization, product, attribute, locale, channel).
func (t *rowTx) UpsertAttributeValue(ctx context.Context, value domain.AttributeValue) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO product_attribute_values (
			organization_id, product_id, attribute_id, locale_id, channel_id, value
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id, product_id, attribute_id, locale_id, channel_id)
		DO UPDATE SET value = EXCLUDED.value`,
		value.OrganizationID, value.ProductID, value.AttributeID, value.LocaleID, value.ChannelID, value.Value,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attribute value: %w", err)
	}
	return nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		product    domain.Product
		name       pgtype.Text
		desc       pgtype.Text
		brand      pgtype.Text
		barcode    pgtype.Text
		categoryID pgtype.UUID
		familyID   pgtype.UUID
		isActive   pgtype.Bool
	)
	err := row.Scan(
		&product.ID, &product.OrganizationID, &product.SKU, &name, &desc, &brand, &barcode,
		&categoryID, &familyID, &isActive, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}

	if name.Valid {
		v := name.String
		product.Name = &v
	}
	if desc.Valid {
		v := desc.String
		product.Description = &v
	}
	if brand.Valid {
		v := brand.String
		product.Brand = &v
	}
	if barcode.Valid {
		v := barcode.String
		product.Barcode = &v
	}
	if categoryID.Valid {
		id := uuid.UUID(categoryID.Bytes)
		product.CategoryID = &id
	}
	if familyID.Valid {
		id := uuid.UUID(familyID.Bytes)
		product.FamilyID = &id
	}
	if isActive.Valid {
		v := isActive.Bool
		product.IsActive = &v
	}
	return product, nil
}
