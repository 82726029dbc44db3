package mapping

import (
	"testing"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/reader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMapping() domain.ColumnMapping {
	return domain.NewColumnMapping(map[string]string{
		"SKU":    domain.FieldSKU,
		"Name":   domain.FieldName,
		"Family": domain.FieldFamilyCode,
	}, []string{"SKU", "Name", "Family"})
}

func TestValidateRejectsMissingColumns(t *testing.T) {
	mapper := NewMapper(testMapping(), domain.FieldSchemaFor(domain.FieldSchemaV2))

	err := mapper.Validate([]string{"SKU"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappingIncomplete)
	// Missing columns are listed sorted for stable messages.
	assert.Contains(t, err.Error(), "Family, Name")
}

func TestValidateRejectsUncoveredRequiredField(t *testing.T) {
	mapping := domain.NewColumnMapping(map[string]string{
		"Name": domain.FieldName,
	}, []string{"Name"})
	mapper := NewMapper(mapping, domain.FieldSchemaFor(domain.FieldSchemaV2))

	err := mapper.Validate([]string{"Name"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingRequiredField)
	assert.Contains(t, err.Error(), domain.FieldSKU)
}

func TestValidateCollectsAttributeCandidates(t *testing.T) {
	mapper := NewMapper(testMapping(), domain.FieldSchemaFor(domain.FieldSchemaV2))

	headers := []string{"SKU", "Name", "Family", "color-en_US", "weight", "Unmatched Header"}
	require.NoError(t, mapper.Validate(headers))

	assert.Len(t, mapper.attributeColumns, 2)
	assert.Equal(t, domain.AttributeKey{Code: "color", Locale: "en_US"}, mapper.attributeColumns["color-en_US"])
	assert.Equal(t, domain.AttributeKey{Code: "weight"}, mapper.attributeColumns["weight"])
}

func TestMapRecordProducesCanonicalRow(t *testing.T) {
	mapper := NewMapper(testMapping(), domain.FieldSchemaFor(domain.FieldSchemaV2))
	require.NoError(t, mapper.Validate([]string{"SKU", "Name", "Family", "color-en_US"}))

	row := mapper.MapRecord(reader.Record{
		"SKU":         "A1",
		"Name":        "  Widget  ",
		"Family":      "",
		"color-en_US": "red",
	}, 7)

	assert.Equal(t, 7, row.Number)
	assert.Equal(t, "A1", row.SKU())
	assert.Equal(t, "Widget", row.Field(domain.FieldName))

	// Every schema field is present; blank or unmapped values are nil.
	schema := domain.FieldSchemaFor(domain.FieldSchemaV2)
	assert.Len(t, row.Fields, len(schema.Fields))
	assert.Nil(t, row.Fields[domain.FieldFamilyCode])
	assert.Nil(t, row.Fields[domain.FieldBrand])

	assert.Equal(t, map[domain.AttributeKey]string{
		{Code: "color", Locale: "en_US"}: "red",
	}, row.Attributes)
}

func TestMapRecordSkipsBlankAttributeCells(t *testing.T) {
	mapper := NewMapper(testMapping(), domain.FieldSchemaFor(domain.FieldSchemaV2))
	require.NoError(t, mapper.Validate([]string{"SKU", "weight"}))

	row := mapper.MapRecord(reader.Record{"SKU": "A1", "weight": "   "}, 2)
	assert.Empty(t, row.Attributes)
}

func TestMapRecordSchemaV1HasNoFamilyField(t *testing.T) {
	mapping := domain.NewColumnMapping(map[string]string{
		"SKU": domain.FieldSKU,
	}, []string{"SKU"})
	mapper := NewMapper(mapping, domain.FieldSchemaFor(domain.FieldSchemaV1))
	require.NoError(t, mapper.Validate([]string{"SKU"}))

	row := mapper.MapRecord(reader.Record{"SKU": "A1"}, 2)
	_, present := row.Fields[domain.FieldFamilyCode]
	assert.False(t, present)
}
