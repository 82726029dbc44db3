package refdata

import (
	"context"
	"errors"
	"testing"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/repository"

	"github.com/google/uuid"
)

type fakeCatalog struct {
	families    []domain.Family
	familyAttrs map[string][]string
	attributes  []domain.Attribute
	locales     []domain.Locale
	channels    []domain.Channel
	categories  []domain.Category

	categoryLookups int
	categoryErr     error
}

func (f *fakeCatalog) ListFamilies(_ context.Context, _ uuid.UUID) ([]domain.Family, error) {
	return f.families, nil
}

func (f *fakeCatalog) ListFamilyAttributeCodes(_ context.Context, _ uuid.UUID) (map[string][]string, error) {
	return f.familyAttrs, nil
}

func (f *fakeCatalog) ListAttributes(_ context.Context, _ uuid.UUID) ([]domain.Attribute, error) {
	return f.attributes, nil
}

func (f *fakeCatalog) ListLocales(_ context.Context, _ uuid.UUID) ([]domain.Locale, error) {
	return f.locales, nil
}

func (f *fakeCatalog) ListChannels(_ context.Context, _ uuid.UUID) ([]domain.Channel, error) {
	return f.channels, nil
}

func (f *fakeCatalog) GetCategoryChild(_ context.Context, _ uuid.UUID, parentID *uuid.UUID, name string) (domain.Category, bool, error) {
	f.categoryLookups++
	if f.categoryErr != nil {
		return domain.Category{}, false, f.categoryErr
	}
	for _, category := range f.categories {
		if category.Name != name {
			continue
		}
		if parentID == nil && category.ParentID == nil {
			return category, true, nil
		}
		if parentID != nil && category.ParentID != nil && *parentID == *category.ParentID {
			return category, true, nil
		}
	}
	return domain.Category{}, false, nil
}

func (f *fakeCatalog) CreateCategory(_ context.Context, category domain.Category) (domain.Category, error) {
	f.categories = append(f.categories, category)
	return category, nil
}

func (f *fakeCatalog) GetProductBySKU(_ context.Context, _ uuid.UUID, _ string) (domain.Product, bool, error) {
	return domain.Product{}, false, nil
}

func (f *fakeCatalog) WithinRowTx(_ context.Context, _ func(tx repository.RowTx) error) error {
	return errors.New("not supported")
}

func testCatalog(org uuid.UUID) *fakeCatalog {
	return &fakeCatalog{
		families: []domain.Family{
			{ID: uuid.New(), OrganizationID: org, Code: "shoes"},
		},
		familyAttrs: map[string][]string{"shoes": {"color"}},
		attributes: []domain.Attribute{
			{ID: uuid.New(), OrganizationID: org, Code: "color"},
			{ID: uuid.New(), OrganizationID: org, Code: "heel_height"},
			{ID: uuid.New(), OrganizationID: org, Code: "heelheight"},
		},
		locales: []domain.Locale{
			{ID: uuid.New(), OrganizationID: org, Code: "de_DE"},
		},
		channels: []domain.Channel{
			{ID: uuid.New(), OrganizationID: org, Code: "mobile"},
		},
	}
}

func TestResolverLookups(t *testing.T) {
	org := uuid.New()
	resolver, err := NewResolver(context.Background(), testCatalog(org), org, false)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	if _, ok := resolver.ResolveFamily("shoes"); !ok {
		t.Error("expected family shoes to resolve")
	}
	if _, ok := resolver.ResolveFamily("SHOES"); ok {
		t.Error("family codes are matched exactly")
	}
	if _, ok := resolver.ResolveLocale("de_DE"); !ok {
		t.Error("expected locale de_DE to resolve")
	}
	if _, ok := resolver.ResolveChannel("mobile"); !ok {
		t.Error("expected channel mobile to resolve")
	}
	if !resolver.AttributeInFamily("color", "shoes") {
		t.Error("expected color to be in family shoes")
	}
	if resolver.AttributeInFamily("heel_height", "shoes") {
		t.Error("heel_height is not attached to shoes")
	}
	if resolver.AttributeInFamily("color", "unknown") {
		t.Error("unknown family has no attributes")
	}
}

func TestResolveAttributeNormalizedFallback(t *testing.T) {
	org := uuid.New()
	catalog := testCatalog(org)
	resolver, err := NewResolver(context.Background(), catalog, org, false)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	// Exact matches always win.
	attribute, ok := resolver.ResolveAttribute("heel_height")
	if !ok || attribute.Code != "heel_height" {
		t.Errorf("expected exact match for heel_height, got %v %v", attribute.Code, ok)
	}

	// "Heel_Height" normalizes to "heelheight", which is claimed by two
	// attributes, so the lookup must refuse to guess.
	if _, ok := resolver.ResolveAttribute("Heel_Height"); ok {
		t.Error("ambiguous normalized matches must not resolve")
	}

	if _, ok := resolver.ResolveAttribute("COLOR"); !ok {
		t.Error("unique normalized match should resolve")
	}
}

func TestResolveCategoryBreadcrumb(t *testing.T) {
	org := uuid.New()
	catalog := testCatalog(org)
	root := domain.Category{ID: uuid.New(), OrganizationID: org, Name: "Apparel"}
	catalog.categories = []domain.Category{root}

	resolver, err := NewResolver(context.Background(), catalog, org, false)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	ctx := context.Background()

	leaf, err := resolver.ResolveCategoryBreadcrumb(ctx, "Apparel/Shoes/Sneakers")
	if err != nil {
		t.Fatalf("ResolveCategoryBreadcrumb failed: %v", err)
	}
	if leaf.Name != "Sneakers" {
		t.Errorf("expected leaf Sneakers, got %s", leaf.Name)
	}
	if len(catalog.categories) != 3 {
		t.Errorf("expected 2 created categories under the existing root, got %d total", len(catalog.categories))
	}

	// The second resolution of the same path must come from the cache.
	lookupsBefore := catalog.categoryLookups
	again, err := resolver.ResolveCategoryBreadcrumb(ctx, "Apparel/Shoes/Sneakers")
	if err != nil {
		t.Fatalf("cached resolution failed: %v", err)
	}
	if again.ID != leaf.ID {
		t.Error("cached resolution must return the same category")
	}
	if catalog.categoryLookups != lookupsBefore {
		t.Errorf("expected no repository lookups on cache hit, got %d extra", catalog.categoryLookups-lookupsBefore)
	}
}

func TestResolveCategoryBreadcrumbTrimsSegments(t *testing.T) {
	org := uuid.New()
	catalog := testCatalog(org)
	resolver, err := NewResolver(context.Background(), catalog, org, false)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	leaf, err := resolver.ResolveCategoryBreadcrumb(context.Background(), " Apparel / Shoes ")
	if err != nil {
		t.Fatalf("ResolveCategoryBreadcrumb failed: %v", err)
	}
	if leaf.Name != "Shoes" {
		t.Errorf("expected trimmed leaf Shoes, got %q", leaf.Name)
	}
	if leaf.ParentID == nil {
		t.Error("leaf should be parented under Apparel")
	}

	if _, err := resolver.ResolveCategoryBreadcrumb(context.Background(), " / / "); err == nil {
		t.Error("blank breadcrumbs must be rejected")
	}
}

func TestResolveCategoryBreadcrumbPropagatesLookupError(t *testing.T) {
	org := uuid.New()
	catalog := testCatalog(org)
	catalog.categoryErr = errors.New("boom")
	resolver, err := NewResolver(context.Background(), catalog, org, false)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	if _, err := resolver.ResolveCategoryBreadcrumb(context.Background(), "Apparel"); err == nil {
		t.Error("expected lookup error to propagate")
	}
}
