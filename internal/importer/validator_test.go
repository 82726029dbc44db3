package importer

import (
	"context"
	"testing"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/refdata"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func canonicalRow(number int, fields map[string]*string, attributes map[domain.AttributeKey]string) domain.CanonicalRow {
	if fields == nil {
		fields = make(map[string]*string)
	}
	if attributes == nil {
		attributes = make(map[domain.AttributeKey]string)
	}
	return domain.CanonicalRow{Number: number, Fields: fields, Attributes: attributes}
}

func newTestResolver(t *testing.T, catalog *stubCatalog, org uuid.UUID, relaxed bool) *refdata.Resolver {
	t.Helper()
	resolver, err := refdata.NewResolver(context.Background(), catalog, org, relaxed)
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}
	return resolver
}

func TestValidateMissingSKUShortCircuits(t *testing.T) {
	org := uuid.New()
	validator := NewRowValidator(newTestResolver(t, fixtureCatalog(org), org, false))

	row := canonicalRow(2, map[string]*string{
		domain.FieldFamilyCode: strPtr("nope"),
	}, map[domain.AttributeKey]string{
		{Code: "ghost"}: "x",
	})

	_, errs := validator.Validate(row)
	if len(errs) != 1 {
		t.Fatalf("missing sku should be the only reported error, got %d", len(errs))
	}
	if errs[0].Code != domain.ErrCodeMissingSKU {
		t.Errorf("expected MISSING_SKU, got %s", errs[0].Code)
	}
}

func TestValidateUnknownFamilyShortCircuitsAttributes(t *testing.T) {
	org := uuid.New()
	validator := NewRowValidator(newTestResolver(t, fixtureCatalog(org), org, false))

	row := canonicalRow(2, map[string]*string{
		domain.FieldSKU:        strPtr("A1"),
		domain.FieldFamilyCode: strPtr("nope"),
	}, map[domain.AttributeKey]string{
		{Code: "color", Locale: "en_US"}: "red",
	})

	_, errs := validator.Validate(row)
	if len(errs) != 1 || errs[0].Code != domain.ErrCodeFamilyUnknown {
		t.Fatalf("expected a single FAMILY_UNKNOWN error, got %v", errs)
	}
}

func TestValidateCollectsAllAttributeErrors(t *testing.T) {
	org := uuid.New()
	validator := NewRowValidator(newTestResolver(t, fixtureCatalog(org), org, false))

	row := canonicalRow(2, map[string]*string{
		domain.FieldSKU:        strPtr("A1"),
		domain.FieldFamilyCode: strPtr("tools"),
	}, map[domain.AttributeKey]string{
		{Code: "ghost"}:                  "x",
		{Code: "color", Locale: "zz_ZZ"}: "red",
		{Code: "weight", Channel: "app"}: "10",
	})

	_, errs := validator.Validate(row)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	codes := make(map[string]bool)
	for _, err := range errs {
		codes[err.Code] = true
	}
	for _, want := range []string{domain.ErrCodeAttributeUnknown, domain.ErrCodeLocaleUnknown, domain.ErrCodeChannelUnknown} {
		if !codes[want] {
			t.Errorf("expected error code %s, got %v", want, codes)
		}
	}
}

func TestValidateAttributeNotInFamily(t *testing.T) {
	org := uuid.New()
	catalog := fixtureCatalog(org)
	catalog.attributes = append(catalog.attributes, domain.Attribute{
		ID: uuid.New(), OrganizationID: org, Code: "voltage",
	})

	row := canonicalRow(2, map[string]*string{
		domain.FieldSKU:        strPtr("A1"),
		domain.FieldFamilyCode: strPtr("tools"),
	}, map[domain.AttributeKey]string{
		{Code: "voltage"}: "230",
	})

	validator := NewRowValidator(newTestResolver(t, catalog, org, false))
	_, errs := validator.Validate(row)
	if len(errs) != 1 || errs[0].Code != domain.ErrCodeAttributeNotInFamily {
		t.Fatalf("expected ATTRIBUTE_NOT_IN_FAMILY, got %v", errs)
	}

	// Relaxed mode keeps existence checks but skips family membership.
	relaxed := NewRowValidator(newTestResolver(t, catalog, org, true))
	validated, errs := relaxed.Validate(row)
	if len(errs) != 0 {
		t.Fatalf("relaxed validation should accept the row, got %v", errs)
	}
	if len(validated.Attributes) != 1 {
		t.Fatalf("expected 1 resolved attribute, got %d", len(validated.Attributes))
	}
}

func TestValidateResolvesNormalizedAttributeCode(t *testing.T) {
	org := uuid.New()
	catalog := fixtureCatalog(org)
	catalog.attributes = append(catalog.attributes, domain.Attribute{
		ID: uuid.New(), OrganizationID: org, Code: "release_date",
	})
	catalog.familyAttrs["tools"] = append(catalog.familyAttrs["tools"], "release_date")

	row := canonicalRow(2, map[string]*string{
		domain.FieldSKU:        strPtr("A1"),
		domain.FieldFamilyCode: strPtr("tools"),
	}, map[domain.AttributeKey]string{
		{Code: "releasedate"}: "2024-01-01",
	})

	validator := NewRowValidator(newTestResolver(t, catalog, org, false))
	validated, errs := validator.Validate(row)
	if len(errs) != 0 {
		t.Fatalf("normalized code should resolve, got %v", errs)
	}
	if validated.Attributes[0].Attribute.Code != "release_date" {
		t.Errorf("expected release_date, got %s", validated.Attributes[0].Attribute.Code)
	}
}

func TestValidateNoFamilySkipsMembershipCheck(t *testing.T) {
	org := uuid.New()
	validator := NewRowValidator(newTestResolver(t, fixtureCatalog(org), org, false))

	row := canonicalRow(2, map[string]*string{
		domain.FieldSKU: strPtr("A1"),
	}, map[domain.AttributeKey]string{
		{Code: "color", Locale: "en_US", Channel: "web"}: "red",
	})

	validated, errs := validator.Validate(row)
	if len(errs) != 0 {
		t.Fatalf("expected valid row, got %v", errs)
	}
	resolved := validated.Attributes[0]
	if resolved.Locale == nil || resolved.Locale.Code != "en_US" {
		t.Error("expected resolved locale en_US")
	}
	if resolved.Channel == nil || resolved.Channel.Code != "web" {
		t.Error("expected resolved channel web")
	}
}
