package reader

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// excelReader iterates the first sheet of an XLSX workbook. The workbook
// itself must be fully parsed up front, but rows are still surfaced one at
// a time through the excelize row iterator.
type excelReader struct {
	source  io.Closer
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
	row     int
}

func newExcelReader(source io.ReadCloser) (*excelReader, error) {
	f, err := excelize.OpenReader(source)
	if err != nil {
		_ = source.Close()
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		_ = source.Close()
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		_ = source.Close()
		return nil, fmt.Errorf("failed to iterate xlsx rows: %w", err)
	}

	if !rows.Next() {
		_ = rows.Close()
		_ = f.Close()
		_ = source.Close()
		return nil, errors.New("no rows found in file")
	}
	headerRow, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = f.Close()
		_ = source.Close()
		return nil, fmt.Errorf("failed to read xlsx header: %w", err)
	}

	return &excelReader{
		source:  source,
		file:    f,
		rows:    rows,
		headers: trimCells(headerRow),
		row:     1,
	}, nil
}

func (r *excelReader) Headers() []string {
	return append([]string(nil), r.headers...)
}

func (r *excelReader) Next() (Record, error) {
	for r.rows.Next() {
		r.row++
		row, err := r.rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read xlsx row: %w", err)
		}
		record, empty := buildRecord(r.headers, row)
		if empty {
			continue
		}
		return record, nil
	}
	if err := r.rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate xlsx rows: %w", err)
	}
	return nil, io.EOF
}

func (r *excelReader) Row() int {
	return r.row
}

func (r *excelReader) Close() error {
	_ = r.rows.Close()
	_ = r.file.Close()
	return r.source.Close()
}
