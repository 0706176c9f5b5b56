package ingest

import (
	"errors"
	"strings"
)

// ErrMissingColumns is returned when a table has no time or area column
var ErrMissingColumns = errors.New("peak table has no time/area columns")

// ErrInvalidWorkbook is returned when a stream is not a readable xlsx file
var ErrInvalidWorkbook = errors.New("not a readable xlsx workbook")

var (
	timeCaptions   = []string{"time", "rt", "retention time", "ret. time", "ret time", "tiempo", "tr"}
	areaCaptions   = []string{"area", "área", "peak area"}
	heightCaptions = []string{"height", "altura", "peak height"}
)

// columnMap holds the positions of the peak columns, -1 when absent
type columnMap struct {
	time   int
	area   int
	height int
}

// normalizeCaption lowercases a header cell and strips a BOM and any unit
// suffix in parentheses or brackets
func normalizeCaption(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	if i := strings.IndexAny(s, "(["); i > 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func matchCaption(caption string, candidates []string) bool {
	for _, c := range candidates {
		if caption == c {
			return true
		}
	}
	return false
}

// detectColumns maps a header row. The first matching column wins.
func detectColumns(header []string) (columnMap, error) {
	cols := columnMap{time: -1, area: -1, height: -1}
	for i, cell := range header {
		caption := normalizeCaption(cell)
		switch {
		case cols.time < 0 && matchCaption(caption, timeCaptions):
			cols.time = i
		case cols.area < 0 && matchCaption(caption, areaCaptions):
			cols.area = i
		case cols.height < 0 && matchCaption(caption, heightCaptions):
			cols.height = i
		}
	}
	if cols.time < 0 || cols.area < 0 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

// cell returns row[idx], or nil when the column is absent or the row short
func cell(row []string, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
