package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"gcquality/internal/chromatography"
)

// ReadCSV reads a peak table with a header row. Row numbers in the result
// are 1-based source lines, the header being line 1.
func ReadCSV(r io.Reader) ([]chromatography.RawPeak, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv: %w", ErrMissingColumns)
	}

	cols, err := detectColumns(records[0])
	if err != nil {
		return nil, err
	}
	return peaksFromRows(records[1:], cols, 2), nil
}

// ReadCSVFile opens and reads a peak table from disk
func ReadCSVFile(path string) ([]chromatography.RawPeak, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	peaks, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return peaks, nil
}

// WriteCSV writes a raw table, header first
func WriteCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// peaksFromRows converts data rows; firstRow is the source row number of
// rows[0]
func peaksFromRows(rows [][]string, cols columnMap, firstRow int) []chromatography.RawPeak {
	peaks := make([]chromatography.RawPeak, 0, len(rows))
	for i, row := range rows {
		if blankRow(row) {
			continue
		}
		peaks = append(peaks, chromatography.RawPeak{
			RetentionTime: cell(row, cols.time),
			Area:          cell(row, cols.area),
			Height:        cell(row, cols.height),
			Row:           firstRow + i,
		})
	}
	return peaks
}
