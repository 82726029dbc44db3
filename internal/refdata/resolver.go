// Package refdata resolves catalog references for one import task using
// caches built once up front, so row processing never re-queries metadata.
package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/repository"

	"github.com/google/uuid"
)

// BreadcrumbDelimiter separates category ancestry segments, e.g.
// "Electronics/Phones".
const BreadcrumbDelimiter = "/"

// Resolver answers reference lookups for one organization. All lookup maps
// are built by NewResolver and are read-only during row processing; only
// the category path cache grows as breadcrumbs are materialized.
type Resolver struct {
	catalog        repository.CatalogRepository
	organizationID uuid.UUID
	relaxed        bool

	families         map[string]domain.Family
	familyAttributes map[string]map[string]struct{}
	attributes       map[string]domain.Attribute
	normalized       map[string][]string
	locales          map[string]domain.Locale
	channels         map[string]domain.Channel

	categoryPaths map[string]domain.Category
}

// NewResolver loads the organization's catalog metadata and builds the
// family-attribute index. Relaxed mode keeps attribute-existence checks but
// disables the family-membership check.
func NewResolver(ctx context.Context, catalog repository.CatalogRepository, organizationID uuid.UUID, relaxed bool) (*Resolver, error) {
	r := &Resolver{
		catalog:          catalog,
		organizationID:   organizationID,
		relaxed:          relaxed,
		families:         make(map[string]domain.Family),
		familyAttributes: make(map[string]map[string]struct{}),
		attributes:       make(map[string]domain.Attribute),
		normalized:       make(map[string][]string),
		locales:          make(map[string]domain.Locale),
		channels:         make(map[string]domain.Channel),
		categoryPaths:    make(map[string]domain.Category),
	}

	families, err := catalog.ListFamilies(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load families: %w", err)
	}
	for _, family := range families {
		r.families[family.Code] = family
	}

	familyAttrs, err := catalog.ListFamilyAttributeCodes(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family attributes: %w", err)
	}
	for familyCode, attrCodes := range familyAttrs {
		set := make(map[string]struct{}, len(attrCodes))
		for _, code := range attrCodes {
			set[code] = struct{}{}
		}
		r.familyAttributes[familyCode] = set
	}

	attributes, err := catalog.ListAttributes(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attributes: %w", err)
	}
	for _, attribute := range attributes {
		r.attributes[attribute.Code] = attribute
		norm := normalizeCode(attribute.Code)
		r.normalized[norm] = append(r.normalized[norm], attribute.Code)
	}

	locales, err := catalog.ListLocales(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load locales: %w", err)
	}
	for _, locale := range locales {
		r.locales[locale.Code] = locale
	}

	channels, err := catalog.ListChannels(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load channels: %w", err)
	}
	for _, channel := range channels {
		r.channels[channel.Code] = channel
	}

	return r, nil
}

// Relaxed reports whether family-membership validation is disabled.
func (r *Resolver) Relaxed() bool {
	return r.relaxed
}

// ResolveFamily looks up a family by exact code.
func (r *Resolver) ResolveFamily(code string) (domain.Family, bool) {
	family, ok := r.families[code]
	return family, ok
}

// ResolveAttribute looks up an attribute by exact code, then falls back to
// a normalized match (underscores stripped, lower-cased). An ambiguous
// normalized match resolves to nothing rather than guessing.
func (r *Resolver) ResolveAttribute(code string) (domain.Attribute, bool) {
	if attribute, ok := r.attributes[code]; ok {
		return attribute, true
	}
	candidates := r.normalized[normalizeCode(code)]
	if len(candidates) != 1 {
		return domain.Attribute{}, false
	}
	return r.attributes[candidates[0]], true
}

// AttributeInFamily reports whether the attribute is legally attached to
// the family, consulting the index built at construction time.
func (r *Resolver) AttributeInFamily(attributeCode, familyCode string) bool {
	set, ok := r.familyAttributes[familyCode]
	if !ok {
		return false
	}
	_, ok = set[attributeCode]
	return ok
}

// ResolveLocale looks up a locale by code.
func (r *Resolver) ResolveLocale(code string) (domain.Locale, bool) {
	locale, ok := r.locales[code]
	return locale, ok
}

// ResolveChannel looks up a channel by code.
func (r *Resolver) ResolveChannel(code string) (domain.Channel, bool) {
	channel, ok := r.channels[code]
	return channel, ok
}

// ResolveCategoryBreadcrumb matches or creates the category path top-down.
// Existing nodes are matched by name under their parent, so no duplicate
// siblings are ever created; materialized paths are cached for the task.
func (r *Resolver) ResolveCategoryBreadcrumb(ctx context.Context, breadcrumb string) (domain.Category, error) {
	segments := splitBreadcrumb(breadcrumb)
	if len(segments) == 0 {
		return domain.Category{}, fmt.Errorf("empty category breadcrumb")
	}

	var parentID *uuid.UUID
	var current domain.Category
	path := ""

	for _, segment := range segments {
		if path == "" {
			path = segment
		} else {
			path = path + BreadcrumbDelimiter + segment
		}

		if cached, ok := r.categoryPaths[path]; ok {
			current = cached
			parentID = &cached.ID
			continue
		}

		existing, found, err := r.catalog.GetCategoryChild(ctx, r.organizationID, parentID, segment)
		if err != nil {
			return domain.Category{}, fmt.Errorf("failed to look up category %q: %w", segment, err)
		}
		if !found {
			existing, err = r.catalog.CreateCategory(ctx, domain.Category{
				ID:             uuid.New(),
				OrganizationID: r.organizationID,
				ParentID:       parentID,
				Name:           segment,
			})
			if err != nil {
				return domain.Category{}, fmt.Errorf("failed to create category %q: %w", segment, err)
			}
		}

		r.categoryPaths[path] = existing
		current = existing
		parentID = &existing.ID
	}

	return current, nil
}

func splitBreadcrumb(breadcrumb string) []string {
	var segments []string
	for _, raw := range strings.Split(breadcrumb, BreadcrumbDelimiter) {
		segment := strings.TrimSpace(raw)
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.ReplaceAll(code, "_", ""))
}
