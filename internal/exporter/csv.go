package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gcquality/internal/chromatography"
	"gcquality/internal/config"
)

// Excel only detects UTF-8 in CSV files that start with a BOM
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes tables below the reports directory
type CSVWriter struct {
	paths *config.Paths
}

func NewCSVWriter(paths *config.Paths) *CSVWriter {
	return &CSVWriter{paths: paths}
}

// WriteOptions is one table to write
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes a table to name. Relative names resolve against the
// reports directory.
func (w *CSVWriter) WriteCSV(name string, table WriteOptions) error {
	path := name
	if !filepath.IsAbs(name) && w.paths != nil {
		path = w.paths.GetReportPath(name)
	}

	slog.Debug("writing csv", slog.String("path", path), slog.Int("rows", len(table.Records)))
	return writeFile(path, func(out io.Writer) error { return writeCSV(out, table) })
}

// WriteSummaryTable writes the one-row-per-sample table to name, with a BOM
func (w *CSVWriter) WriteSummaryTable(name string, summaries []*chromatography.ExperimentSummary) error {
	return w.WriteCSV(name, WriteOptions{
		Headers:   SummaryHeaders,
		Records:   SummaryRows(summaries),
		BOMPrefix: true,
	})
}

func writeCSV(out io.Writer, table WriteOptions) error {
	if table.BOMPrefix {
		if _, err := out.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(out)
	if len(table.Headers) > 0 {
		if err := cw.Write(table.Headers); err != nil {
			return fmt.Errorf("header: %w", err)
		}
	}
	if err := cw.WriteAll(table.Records); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}
