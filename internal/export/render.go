package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrUnknownFormat = errors.New("unknown export format")

const (
	baseName  = "request_data"
	sheetName = "requests"
)

// File — готовый к отдаче артефакт.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseFormat: пустое значение означает CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func Render(t Table, f Format) (*File, error) {
	switch f {
	case FormatCSV:
		data, err := RenderCSV(t)
		if err != nil {
			return nil, err
		}
		return &File{Name: baseName + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	case FormatXLSX:
		data, err := RenderXLSX(t)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        baseName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func RenderCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("csv: write rows: %w", err)
	}
	return buf.Bytes(), nil
}

func RenderXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// В новой книге единственный лист называется Sheet1
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	if err := writeRow(f, 1, t.Columns); err != nil {
		return nil, err
	}
	for i, row := range t.Rows {
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, n int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return fmt.Errorf("xlsx: cell name: %w", err)
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
		return fmt.Errorf("xlsx: write row %d: %w", n, err)
	}
	return nil
}
