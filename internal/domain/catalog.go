package domain

import (
	"time"

	"github.com/google/uuid"
)

// Family is a named set of attributes that legally apply to its products.
type Family struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code"`
	Label          string    `json:"label"`
	CreatedAt      time.Time `json:"created_at"`
}

// Attribute is an organization-scoped field attachable to products,
// optionally varying by locale and channel.
type Attribute struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code"`
	Label          string    `json:"label"`
	Localizable    bool      `json:"localizable"`
	Scopable       bool      `json:"scopable"`
	CreatedAt      time.Time `json:"created_at"`
}

// Locale is a language/region dimension for attribute values.
type Locale struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code"`
}

// Channel is a sales-channel dimension for attribute values.
type Channel struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Code           string    `json:"code"`
}

// Category is one node of the organization's category tree.
type Category struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	Name           string     `json:"name"`
}

// Product is the core catalog record the import pipeline writes.
type Product struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	SKU            string     `json:"sku"`
	Name           *string    `json:"name,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Brand          *string    `json:"brand,omitempty"`
	Barcode        *string    `json:"barcode,omitempty"`
	CategoryID     *uuid.UUID `json:"category_id,omitempty"`
	FamilyID       *uuid.UUID `json:"family_id,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MergeFrom overlays the non-nil fields of incoming onto the product.
// Nil fields leave the existing values untouched; this is the partial-update
// merge used by the overwrite duplicate strategy.
func (p Product) MergeFrom(incoming Product) Product {
	merged := p
	if incoming.Name != nil {
		merged.Name = incoming.Name
	}
	if incoming.Description != nil {
		merged.Description = incoming.Description
	}
	if incoming.Brand != nil {
		merged.Brand = incoming.Brand
	}
	if incoming.Barcode != nil {
		merged.Barcode = incoming.Barcode
	}
	if incoming.CategoryID != nil {
		merged.CategoryID = incoming.CategoryID
	}
	if incoming.FamilyID != nil {
		merged.FamilyID = incoming.FamilyID
	}
	if incoming.IsActive != nil {
		merged.IsActive = incoming.IsActive
	}
	merged.UpdatedAt = time.Now()
	return merged
}

// AttributeValue is one cell of product data keyed by attribute, locale and channel.
type AttributeValue struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	ProductID      uuid.UUID  `json:"product_id"`
	AttributeID    uuid.UUID  `json:"attribute_id"`
	LocaleID       *uuid.UUID `json:"locale_id,omitempty"`
	ChannelID      *uuid.UUID `json:"channel_id,omitempty"`
	Value          string     `json:"value"`
}
