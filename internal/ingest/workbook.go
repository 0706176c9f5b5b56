package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"gcquality/internal/chromatography"
)

// DefaultStandardPrefix marks internal-standard injection sheets, matched
// case-insensitively ("std interno_20_10_2025", "STD INT_07_11_2025")
const DefaultStandardPrefix = "std int"

// WorkbookOptions selects and names the sheets to read
type WorkbookOptions struct {
	// Sheets maps sheet name to sample name. Empty reads every sheet under
	// its own name.
	Sheets map[string]string
	// StandardPrefix identifies the internal-standard sheet
	StandardPrefix string
}

// SheetTable is one sheet's peak table
type SheetTable struct {
	Sheet     string                   `json:"sheet"`
	Name      string                   `json:"name"`
	HeaderRow int                      `json:"header_row"`
	Header    []string                 `json:"header"`
	Rows      [][]string               `json:"-"`
	Peaks     []chromatography.RawPeak `json:"-"`
}

// Workbook is the result of reading an instrument workbook
type Workbook struct {
	Source   string       `json:"source"`
	Samples  []SheetTable `json:"samples"`
	Standard *SheetTable  `json:"standard,omitempty"`
	// Skipped lists sheets without a recognisable peak table
	Skipped []string `json:"skipped,omitempty"`
}

// ReadWorkbook opens an .xlsx file and extracts its peak tables
func ReadWorkbook(path string, opts WorkbookOptions) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, path, opts)
}

// ReadWorkbookFrom reads a workbook from a stream, used for uploads
func ReadWorkbookFrom(r io.Reader, source string, opts WorkbookOptions) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWorkbook, source, err)
	}
	defer f.Close()

	return readWorkbook(f, source, opts)
}

func readWorkbook(f *excelize.File, source string, opts WorkbookOptions) (*Workbook, error) {
	prefix := strings.ToLower(opts.StandardPrefix)
	if prefix == "" {
		prefix = DefaultStandardPrefix
	}

	wb := &Workbook{Source: source}
	for _, sheet := range f.GetSheetList() {
		isStandard := strings.HasPrefix(strings.ToLower(strings.TrimSpace(sheet)), prefix)

		name := sheet
		if len(opts.Sheets) > 0 && !isStandard {
			mapped, ok := opts.Sheets[sheet]
			if !ok {
				continue
			}
			name = mapped
		}

		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		table, ok := extractTable(sheet, name, rows)
		if !ok {
			wb.Skipped = append(wb.Skipped, sheet)
			continue
		}

		if isStandard {
			if wb.Standard == nil {
				wb.Standard = &table
			}
			continue
		}
		wb.Samples = append(wb.Samples, table)
	}

	if len(wb.Samples) == 0 {
		return nil, fmt.Errorf("no peak tables found in %s: %w", source, ErrMissingColumns)
	}
	return wb, nil
}

// extractTable finds the header row and converts the rows below it
func extractTable(sheet, name string, rows [][]string) (SheetTable, bool) {
	for i, row := range rows {
		cols, err := detectColumns(row)
		if err != nil {
			continue
		}
		data := rows[i+1:]
		return SheetTable{
			Sheet:     sheet,
			Name:      name,
			HeaderRow: i + 1,
			Header:    row,
			Rows:      data,
			Peaks:     peaksFromRows(data, cols, i+2),
		}, true
	}
	return SheetTable{}, false
}

// ToSamples converts the workbook tables into engine samples, ordered as in
// the workbook
func (wb *Workbook) ToSamples() []chromatography.Sample {
	samples := make([]chromatography.Sample, 0, len(wb.Samples))
	for i, t := range wb.Samples {
		samples = append(samples, chromatography.Sample{
			Label:        t.Name,
			OriginalName: t.Sheet,
			Order:        i + 1,
			Peaks:        t.Peaks,
		})
	}
	return samples
}
