package importer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/refdata"
	"github.com/openpim/importer/internal/repository"

	"github.com/google/uuid"
)

// SkipReasonDuplicateSKU is reported when the skip strategy leaves an
// existing product untouched.
const SkipReasonDuplicateSKU = "duplicate_sku"

// RowApplier commits one validated row as a single atomic unit: product
// upsert, tag assignment and attribute-value upserts all succeed or all
// roll back. The duplicate strategy is consulted before any write.
type RowApplier struct {
	catalog        repository.CatalogRepository
	resolver       *refdata.Resolver
	organizationID uuid.UUID
	strategy       domain.DuplicateStrategy
}

// NewRowApplier builds the applier for one import task.
func NewRowApplier(catalog repository.CatalogRepository, resolver *refdata.Resolver, organizationID uuid.UUID, strategy domain.DuplicateStrategy) *RowApplier {
	return &RowApplier{
		catalog:        catalog,
		resolver:       resolver,
		organizationID: organizationID,
		strategy:       strategy,
	}
}

// Apply executes the row's effects and reports the outcome. All failures
// are row-local; the caller decides nothing beyond recording the outcome.
func (a *RowApplier) Apply(ctx context.Context, validated ValidatedRow) domain.RowOutcome {
	row := validated.Row
	sku := row.SKU()

	existing, found, err := a.catalog.GetProductBySKU(ctx, a.organizationID, sku)
	if err != nil {
		return domain.FailedOutcome(sku, domain.RowError{
			RowNumber: row.Number,
			SKU:       sku,
			Field:     domain.FieldSKU,
			Code:      domain.ErrCodeApplyFailed,
			Message:   "failed to look up existing product: " + err.Error(),
		})
	}

	if found {
		switch a.strategy {
		case domain.DuplicateStrategySkip:
			return domain.SkippedOutcome(sku, SkipReasonDuplicateSKU)
		case domain.DuplicateStrategyAbort:
			return domain.FailedOutcome(sku, domain.RowError{
				RowNumber: row.Number,
				SKU:       sku,
				Field:     domain.FieldSKU,
				Code:      domain.ErrCodeDuplicateSKU,
				Message:   "product with this sku already exists",
			})
		}
	}

	product, rowErr := a.buildProduct(ctx, validated)
	if rowErr != nil {
		return domain.FailedOutcome(sku, *rowErr)
	}
	if found {
		// Overwrite is a partial-update merge: null mapped fields leave
		// existing values untouched.
		product = existing.MergeFrom(product)
	}

	tags, replaceTags := parseTags(row.Fields[domain.FieldTags])

	err = a.catalog.WithinRowTx(ctx, func(tx repository.RowTx) error {
		persisted, err := tx.UpsertProduct(ctx, product)
		if err != nil {
			return err
		}
		if replaceTags {
			if err := tx.ReplaceTags(ctx, persisted.ID, tags); err != nil {
				return err
			}
		}
		for _, resolved := range validated.Attributes {
			value := domain.AttributeValue{
				OrganizationID: a.organizationID,
				ProductID:      persisted.ID,
				AttributeID:    resolved.Attribute.ID,
				Value:          resolved.Value,
			}
			if resolved.Locale != nil {
				value.LocaleID = &resolved.Locale.ID
			}
			if resolved.Channel != nil {
				value.ChannelID = &resolved.Channel.ID
			}
			if err := tx.UpsertAttributeValue(ctx, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.FailedOutcome(sku, domain.RowError{
			RowNumber: row.Number,
			SKU:       sku,
			Field:     domain.FieldSKU,
			Code:      domain.ErrCodeApplyFailed,
			Message:   "row transaction failed: " + err.Error(),
		})
	}

	return domain.AppliedOutcome(sku)
}

func (a *RowApplier) buildProduct(ctx context.Context, validated ValidatedRow) (domain.Product, *domain.RowError) {
	row := validated.Row
	product := domain.Product{
		ID:             uuid.New(),
		OrganizationID: a.organizationID,
		SKU:            row.SKU(),
		Name:           row.Fields[domain.FieldName],
		Description:    row.Fields[domain.FieldDescription],
		Brand:          row.Fields[domain.FieldBrand],
		Barcode:        row.Fields[domain.FieldBarcode],
	}

	if validated.Family != nil {
		familyID := validated.Family.ID
		product.FamilyID = &familyID
	}

	if breadcrumb := row.Field(domain.FieldCategory); breadcrumb != "" {
		category, err := a.resolver.ResolveCategoryBreadcrumb(ctx, breadcrumb)
		if err != nil {
			return domain.Product{}, &domain.RowError{
				RowNumber: row.Number,
				SKU:       row.SKU(),
				Field:     domain.FieldCategory,
				Code:      domain.ErrCodeCategoryUnknown,
				Message:   "failed to resolve category breadcrumb: " + err.Error(),
			}
		}
		categoryID := category.ID
		product.CategoryID = &categoryID
	}

	if raw := row.Field(domain.FieldIsActive); raw != "" {
		active := parseBool(raw)
		product.IsActive = &active
	}

	return product, nil
}

// parseTags decodes a pipe- or JSON-array-encoded tag string. The second
// return value is false when the tags field was absent, in which case
// existing tags are left alone.
func parseTags(raw *string) ([]string, bool) {
	if raw == nil {
		return nil, false
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil, true
	}

	if strings.HasPrefix(trimmed, "[") {
		var decoded []string
		if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
			return cleanTags(decoded), true
		}
	}
	return cleanTags(strings.Split(trimmed, "|")), true
}

func cleanTags(raw []string) []string {
	var tags []string
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
