package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/openpim/importer/internal/domain"
)

// ErrorSink accumulates structured row-level errors in encounter order and
// serializes them into the downloadable CSV report.
type ErrorSink struct {
	errors []domain.RowError
}

// NewErrorSink returns an empty sink.
func NewErrorSink() *ErrorSink {
	return &ErrorSink{}
}

// Record appends errors, preserving row order as encountered.
func (s *ErrorSink) Record(errs ...domain.RowError) {
	s.errors = append(s.errors, errs...)
}

// Count returns the number of recorded errors.
func (s *ErrorSink) Count() int {
	return len(s.errors)
}

// HasErrors reports whether anything was recorded.
func (s *ErrorSink) HasErrors() bool {
	return len(s.errors) > 0
}

// Errors returns the recorded errors in order.
func (s *ErrorSink) Errors() []domain.RowError {
	return append([]domain.RowError(nil), s.errors...)
}

// ReportCSV renders the report with header Row,SKU,Field,Error and one
// data line per recorded error.
func (s *ErrorSink) ReportCSV() ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Row", "SKU", "Field", "Error"}); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}
	for _, rowErr := range s.errors {
		record := []string{
			strconv.Itoa(rowErr.RowNumber),
			rowErr.SKU,
			rowErr.Field,
			fmt.Sprintf("%s: %s", rowErr.Code, rowErr.Message),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write report row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.Bytes(), nil
}
