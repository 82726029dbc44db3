package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openpim/importer/internal/domain"
	"github.com/openpim/importer/internal/reader"
)

var (
	// ErrMappingIncomplete is returned when the mapping names a column the
	// file does not have.
	ErrMappingIncomplete = errors.New("column mapping references missing columns")
	// ErrMissingRequiredField is returned when a required canonical field is
	// not covered by the mapping.
	ErrMissingRequiredField = errors.New("required field not covered by mapping")
)

// Mapper applies a user-supplied column mapping against a canonical field
// schema version. Validate must run once against the file's headers before
// MapRecord is used.
type Mapper struct {
	mapping domain.ColumnMapping
	schema  domain.FieldSchema

	// attributeColumns are unmapped headers that parse as attribute keys,
	// discovered during Validate.
	attributeColumns map[string]domain.AttributeKey
}

// NewMapper builds a mapper for one import task.
func NewMapper(mapping domain.ColumnMapping, schema domain.FieldSchema) *Mapper {
	return &Mapper{
		mapping:          mapping,
		schema:           schema,
		attributeColumns: make(map[string]domain.AttributeKey),
	}
}

// Validate checks the mapping against the file's header set and records
// which unmapped columns are attribute-column candidates.
func (m *Mapper) Validate(headers []string) error {
	headerSet := make(map[string]struct{}, len(headers))
	for _, header := range headers {
		headerSet[header] = struct{}{}
	}

	var missing []string
	for _, column := range m.mapping.Columns() {
		if _, ok := headerSet[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMappingIncomplete, strings.Join(missing, ", "))
	}

	covered := m.mapping.FieldIDs()
	for _, fieldID := range m.schema.RequiredFieldIDs() {
		if _, ok := covered[fieldID]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingRequiredField, fieldID)
		}
	}

	for _, header := range headers {
		if _, mapped := m.mapping.FieldFor(header); mapped {
			continue
		}
		if key, ok := ParseAttributeHeader(header); ok {
			m.attributeColumns[header] = key
		}
	}
	return nil
}

// MapRecord produces the canonical row for one raw record. Every schema
// field is present in the result; absent or blank source values become nil.
func (m *Mapper) MapRecord(record reader.Record, rowNumber int) domain.CanonicalRow {
	row := domain.CanonicalRow{
		Number:     rowNumber,
		Fields:     make(map[string]*string, len(m.schema.Fields)),
		Attributes: make(map[domain.AttributeKey]string),
	}

	for _, field := range m.schema.Fields {
		row.Fields[field.ID] = nil
		column, ok := m.mapping.ColumnFor(field.ID)
		if !ok {
			continue
		}
		value := strings.TrimSpace(record[column])
		if value == "" {
			continue
		}
		row.Fields[field.ID] = &value
	}

	for header, key := range m.attributeColumns {
		value := strings.TrimSpace(record[header])
		if value == "" {
			continue
		}
		row.Attributes[key] = value
	}

	return row
}
