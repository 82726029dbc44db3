package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ImportTaskStatus tracks the lifecycle of an import task.
type ImportTaskStatus string

const (
	ImportTaskStatusQueued         ImportTaskStatus = "queued"
	ImportTaskStatusRunning        ImportTaskStatus = "running"
	ImportTaskStatusSuccess        ImportTaskStatus = "success"
	ImportTaskStatusPartialSuccess ImportTaskStatus = "partial_success"
	ImportTaskStatusError          ImportTaskStatus = "error"
)

// IsTerminal reports whether the task can no longer change state.
func (s ImportTaskStatus) IsTerminal() bool {
	switch s {
	case ImportTaskStatusSuccess, ImportTaskStatusPartialSuccess, ImportTaskStatusError:
		return true
	}
	return false
}

// DuplicateStrategy decides what happens when a row's SKU already exists.
type DuplicateStrategy string

const (
	DuplicateStrategySkip      DuplicateStrategy = "skip"
	DuplicateStrategyOverwrite DuplicateStrategy = "overwrite"
	// DuplicateStrategyAbort fails the duplicate row, not the whole task.
	DuplicateStrategyAbort DuplicateStrategy = "abort"
)

// ValidDuplicateStrategy reports whether the value is a known strategy.
func ValidDuplicateStrategy(s DuplicateStrategy) bool {
	switch s {
	case DuplicateStrategySkip, DuplicateStrategyOverwrite, DuplicateStrategyAbort:
		return true
	}
	return false
}

// ColumnMapping maps a source column name to a canonical field id.
// Insertion order is preserved for reproducible mapping validation output.
type ColumnMapping struct {
	columns []string
	fields  map[string]string
}

// NewColumnMapping builds an ordered column mapping. Later duplicates of the
// same source column are ignored.
func NewColumnMapping(pairs map[string]string, order []string) ColumnMapping {
	m := ColumnMapping{fields: make(map[string]string, len(pairs))}
	for _, column := range order {
		field, ok := pairs[column]
		if !ok {
			continue
		}
		if _, seen := m.fields[column]; seen {
			continue
		}
		m.columns = append(m.columns, column)
		m.fields[column] = field
	}
	return m
}

// Columns returns the mapped source columns in insertion order.
func (m ColumnMapping) Columns() []string {
	return append([]string(nil), m.columns...)
}

// FieldFor returns the canonical field id mapped to the source column.
func (m ColumnMapping) FieldFor(column string) (string, bool) {
	field, ok := m.fields[column]
	return field, ok
}

// ColumnFor returns the source column mapped to the canonical field id.
func (m ColumnMapping) ColumnFor(fieldID string) (string, bool) {
	for _, column := range m.columns {
		if m.fields[column] == fieldID {
			return column, true
		}
	}
	return "", false
}

// FieldIDs returns the set of canonical field ids covered by the mapping.
func (m ColumnMapping) FieldIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(m.columns))
	for _, column := range m.columns {
		ids[m.fields[column]] = struct{}{}
	}
	return ids
}

// Len returns the number of mapped columns.
func (m ColumnMapping) Len() int {
	return len(m.columns)
}

type columnMappingEntry struct {
	Column string `json:"column"`
	Field  string `json:"field"`
}

// MarshalJSON encodes the mapping as an ordered array of column/field pairs.
func (m ColumnMapping) MarshalJSON() ([]byte, error) {
	entries := make([]columnMappingEntry, 0, len(m.columns))
	for _, column := range m.columns {
		entries = append(entries, columnMappingEntry{Column: column, Field: m.fields[column]})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON restores the mapping from its ordered array encoding.
func (m *ColumnMapping) UnmarshalJSON(data []byte) error {
	var entries []columnMappingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	pairs := make(map[string]string, len(entries))
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		pairs[entry.Column] = entry.Field
		order = append(order, entry.Column)
	}
	*m = NewColumnMapping(pairs, order)
	return nil
}

// ImportTask is one spreadsheet ingestion job owned by an organization.
type ImportTask struct {
	ID                uuid.UUID         `json:"id"`
	OrganizationID    uuid.UUID         `json:"organization_id"`
	CreatedBy         uuid.UUID         `json:"created_by"`
	FileName          string            `json:"file_name"`
	FileRef           string            `json:"file_ref"`
	Mapping           ColumnMapping     `json:"-"`
	SchemaVersion     string            `json:"schema_version"`
	DuplicateStrategy DuplicateStrategy `json:"duplicate_strategy"`
	Status            ImportTaskStatus  `json:"status"`
	ProcessedRows     int               `json:"processed"`
	TotalRows         *int              `json:"total_rows,omitempty"`
	ErrorCount        int               `json:"error_count"`
	ReportPath        *string           `json:"report_path,omitempty"`
	ExecutionTime     time.Duration     `json:"execution_time"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// NewImportTask creates a queued task for the given file and mapping.
func NewImportTask(organizationID, createdBy uuid.UUID, fileName, fileRef string, mapping ColumnMapping, strategy DuplicateStrategy, schemaVersion string) ImportTask {
	now := time.Now()
	return ImportTask{
		ID:                uuid.New(),
		OrganizationID:    organizationID,
		CreatedBy:         createdBy,
		FileName:          fileName,
		FileRef:           fileRef,
		Mapping:           mapping,
		SchemaVersion:     schemaVersion,
		DuplicateStrategy: strategy,
		Status:            ImportTaskStatusQueued,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
