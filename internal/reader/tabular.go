// Package reader streams raw records out of uploaded CSV and XLSX files.
package reader

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when an uploaded file is not supported.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Record is one raw data row keyed by column header.
type Record map[string]string

// Reader yields raw records from a tabular source one row at a time.
// The sequence is finite and non-restartable; callers needing a second
// pass must open a fresh reader.
type Reader interface {
	// Headers returns the first row of the file, trimmed.
	Headers() []string
	// Next returns the next non-empty data row, or io.EOF when exhausted.
	Next() (Record, error)
	// Row returns the 1-based file row of the record most recently returned
	// by Next. Blank rows are skipped but still advance the count, so the
	// number matches what the user sees in the source file.
	Row() int
	Close() error
}

// Open wraps the source in a format-specific reader chosen by file
// extension. Only .csv and .xlsx are supported.
func Open(source io.ReadCloser, fileName string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return newCSVReader(source)
	case ".xlsx":
		return newExcelReader(source)
	default:
		_ = source.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

type csvReader struct {
	source  io.Closer
	csv     *csv.Reader
	headers []string
	row     int
}

func newCSVReader(source io.ReadCloser) (*csvReader, error) {
	buffered := bufio.NewReader(source)
	if prefix, err := buffered.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = buffered.Discard(len(byteOrderMark))
	}

	parser := csv.NewReader(buffered)
	parser.TrimLeadingSpace = true
	parser.FieldsPerRecord = -1

	headerRow, err := parser.Read()
	if err != nil {
		_ = source.Close()
		if errors.Is(err, io.EOF) {
			return nil, errors.New("no rows found in file")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	return &csvReader{
		source:  source,
		csv:     parser,
		headers: trimCells(headerRow),
		row:     1,
	}, nil
}

func (r *csvReader) Headers() []string {
	return append([]string(nil), r.headers...)
}

func (r *csvReader) Next() (Record, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		// FieldPos reports the physical input line, which keeps the count
		// honest across blank lines the csv parser swallows.
		if line, _ := r.csv.FieldPos(0); line > 0 {
			r.row = line
		}
		record, empty := buildRecord(r.headers, row)
		if empty {
			continue
		}
		return record, nil
	}
}

func (r *csvReader) Row() int {
	return r.row
}

func (r *csvReader) Close() error {
	return r.source.Close()
}

func trimCells(row []string) []string {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return trimmed
}

// buildRecord pads or truncates the row to the header width and reports
// whether every cell was blank.
func buildRecord(headers, row []string) (Record, bool) {
	record := make(Record, len(headers))
	empty := true
	for i, header := range headers {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		if value != "" {
			empty = false
		}
		record[header] = value
	}
	return record, empty
}
