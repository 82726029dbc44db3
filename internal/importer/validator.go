// Package importer runs spreadsheet rows through mapping, validation and
// transactional application, orchestrated per task by the Coordinator.
package importer

import (
	"fmt"
	"sort"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/refdata"
)

// ResolvedAttributeValue is one attribute column resolved against the
// organization's catalog metadata.
type ResolvedAttributeValue struct {
	Attribute domain.Attribute
	Locale    *domain.Locale
	Channel   *domain.Channel
	Value     string
}

// ValidatedRow is a canonical row whose references all resolved.
type ValidatedRow struct {
	Row        domain.CanonicalRow
	Family     *domain.Family
	Attributes []ResolvedAttributeValue
}

// RowValidator runs the row-level validation rules. A row either passes
// with all references resolved or fails with the full list of violations;
// partial attribute application within one row is never allowed.
type RowValidator struct {
	resolver *refdata.Resolver
}

// NewRowValidator builds a validator over the task's reference resolver.
func NewRowValidator(resolver *refdata.Resolver) *RowValidator {
	return &RowValidator{resolver: resolver}
}

// Validate checks sku presence, family existence, and every attribute
// column's attribute/family-membership/locale/channel references. The
// returned errors are empty when the row is valid.
func (v *RowValidator) Validate(row domain.CanonicalRow) (ValidatedRow, []domain.RowError) {
	validated := ValidatedRow{Row: row}
	var errs []domain.RowError

	sku := row.SKU()
	if sku == "" {
		errs = append(errs, domain.RowError{
			RowNumber: row.Number,
			Field:     domain.FieldSKU,
			Code:      domain.ErrCodeMissingSKU,
			Message:   "sku is required",
		})
		return validated, errs
	}

	familyCode := row.Field(domain.FieldFamilyCode)
	if familyCode != "" {
		family, ok := v.resolver.ResolveFamily(familyCode)
		if !ok {
			errs = append(errs, domain.RowError{
				RowNumber: row.Number,
				SKU:       sku,
				Field:     domain.FieldFamilyCode,
				Code:      domain.ErrCodeFamilyUnknown,
				Message:   fmt.Sprintf("family %q does not exist", familyCode),
			})
			return validated, errs
		}
		validated.Family = &family
	}

	for _, key := range sortedAttributeKeys(row.Attributes) {
		value := row.Attributes[key]
		fieldName := attributeFieldName(key)

		attribute, ok := v.resolver.ResolveAttribute(key.Code)
		if !ok {
			errs = append(errs, domain.RowError{
				RowNumber: row.Number,
				SKU:       sku,
				Field:     fieldName,
				Code:      domain.ErrCodeAttributeUnknown,
				Message:   fmt.Sprintf("attribute %q does not exist", key.Code),
			})
			continue
		}

		if validated.Family != nil && !v.resolver.Relaxed() && !v.resolver.AttributeInFamily(attribute.Code, validated.Family.Code) {
			errs = append(errs, domain.RowError{
				RowNumber: row.Number,
				SKU:       sku,
				Field:     fieldName,
				Code:      domain.ErrCodeAttributeNotInFamily,
				Message:   fmt.Sprintf("attribute %q is not in family %q", attribute.Code, validated.Family.Code),
			})
			continue
		}

		resolved := ResolvedAttributeValue{Attribute: attribute, Value: value}

		if key.Locale != "" {
			locale, ok := v.resolver.ResolveLocale(key.Locale)
			if !ok {
				errs = append(errs, domain.RowError{
					RowNumber: row.Number,
					SKU:       sku,
					Field:     fieldName,
					Code:      domain.ErrCodeLocaleUnknown,
					Message:   fmt.Sprintf("locale %q does not exist", key.Locale),
				})
				continue
			}
			resolved.Locale = &locale
		}

		if key.Channel != "" {
			channel, ok := v.resolver.ResolveChannel(key.Channel)
			if !ok {
				errs = append(errs, domain.RowError{
					RowNumber: row.Number,
					SKU:       sku,
					Field:     fieldName,
					Code:      domain.ErrCodeChannelUnknown,
					Message:   fmt.Sprintf("channel %q does not exist", key.Channel),
				})
				continue
			}
			resolved.Channel = &channel
		}

		validated.Attributes = append(validated.Attributes, resolved)
	}

	if len(errs) > 0 {
		return validated, errs
	}
	return validated, nil
}

func sortedAttributeKeys(attributes map[domain.AttributeKey]string) []domain.AttributeKey {
	keys := make([]domain.AttributeKey, 0, len(attributes))
	for key := range attributes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Code != keys[j].Code {
			return keys[i].Code < keys[j].Code
		}
		if keys[i].Locale != keys[j].Locale {
			return keys[i].Locale < keys[j].Locale
		}
		return keys[i].Channel < keys[j].Channel
	})
	return keys
}

func attributeFieldName(key domain.AttributeKey) string {
	name := key.Code
	if key.Locale != "" {
		name += "-" + key.Locale
	}
	if key.Channel != "" {
		name += "-" + key.Channel
	}
	return name
}
