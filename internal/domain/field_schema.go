package domain

// Canonical field ids understood natively by the import pipeline.
const (
	FieldSKU         = "sku"
	FieldName        = "name"
	FieldDescription = "description"
	FieldBrand       = "brand"
	FieldBarcode     = "barcode"
	FieldCategory    = "category"
	FieldFamilyCode  = "family_code"
	FieldIsActive    = "is_active"
	FieldTags        = "tags"
)

// Field schema versions. V2 is canonical; it reintroduces family_code
// which v1 had dropped.
const (
	FieldSchemaV1 = "v1"
	FieldSchemaV2 = "v2"
)

// FieldDefinition describes one canonical field of a schema version.
type FieldDefinition struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Type     string `json:"type"`
}

// FieldSchema is a versioned list of canonical fields.
type FieldSchema struct {
	Version string            `json:"version"`
	Fields  []FieldDefinition `json:"fields"`
}

var fieldSchemaV1 = FieldSchema{
	Version: FieldSchemaV1,
	Fields: []FieldDefinition{
		{ID: FieldSKU, Label: "SKU", Required: true, Type: "string"},
		{ID: FieldName, Label: "Name", Type: "string"},
		{ID: FieldDescription, Label: "Description", Type: "string"},
		{ID: FieldBrand, Label: "Brand", Type: "string"},
		{ID: FieldBarcode, Label: "Barcode", Type: "string"},
		{ID: FieldCategory, Label: "Category", Type: "string"},
		{ID: FieldIsActive, Label: "Active", Type: "boolean"},
		{ID: FieldTags, Label: "Tags", Type: "string"},
	},
}

var fieldSchemaV2 = FieldSchema{
	Version: FieldSchemaV2,
	Fields: []FieldDefinition{
		{ID: FieldSKU, Label: "SKU", Required: true, Type: "string"},
		{ID: FieldName, Label: "Name", Type: "string"},
		{ID: FieldDescription, Label: "Description", Type: "string"},
		{ID: FieldBrand, Label: "Brand", Type: "string"},
		{ID: FieldBarcode, Label: "Barcode", Type: "string"},
		{ID: FieldCategory, Label: "Category", Type: "string"},
		{ID: FieldFamilyCode, Label: "Family", Type: "string"},
		{ID: FieldIsActive, Label: "Active", Type: "boolean"},
		{ID: FieldTags, Label: "Tags", Type: "string"},
	},
}

// FieldSchemaFor returns the schema for the requested version. Unknown or
// empty versions fall back to v2, the canonical schema.
func FieldSchemaFor(version string) FieldSchema {
	switch version {
	case FieldSchemaV1:
		return fieldSchemaV1
	default:
		return fieldSchemaV2
	}
}

// RequiredFieldIDs returns the ids of the schema's required fields.
func (s FieldSchema) RequiredFieldIDs() []string {
	var ids []string
	for _, field := range s.Fields {
		if field.Required {
			ids = append(ids, field.ID)
		}
	}
	return ids
}

// HasField reports whether the schema declares the field id.
func (s FieldSchema) HasField(id string) bool {
	for _, field := range s.Fields {
		if field.ID == id {
			return true
		}
	}
	return false
}
