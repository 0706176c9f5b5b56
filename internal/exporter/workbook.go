package exporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"gcquality/internal/chromatography"
)

// SummarySheet is the name of the cross-experiment sheet
const SummarySheet = "Summary"

// maxSheetName is the Excel limit on sheet name length
const maxSheetName = 31

var experimentHeaders = []string{
	"Sample", "OriginalName", "Order",
	"Conversion %", "Purity %", "Mono %", "Di %", "Tri %",
	"FAME area", "FAME peaks", "Concentration mg/mL", "Warnings",
}

var summaryHeaders = []string{
	"Experiment", "Date", "Samples",
	"Conversion mean %", "Conversion std %", "Conversion min %", "Conversion max %",
	"Purity mean %", "Purity std %", "CV %",
}

type workbookStyles struct {
	header int
	number int
}

// WriteWorkbook saves the xlsx report to path
func WriteWorkbook(path string, summaries []*chromatography.ExperimentSummary) error {
	f, err := buildWorkbook(summaries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// WriteWorkbookTo streams the xlsx report to w
func WriteWorkbookTo(w io.Writer, summaries []*chromatography.ExperimentSummary) error {
	f, err := buildWorkbook(summaries)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(summaries []*chromatography.ExperimentSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	styles, err := newWorkbookStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename default sheet: %w", err)
	}

	used := map[string]bool{strings.ToLower(SummarySheet): true}
	var written []*chromatography.ExperimentSummary
	for _, s := range summaries {
		if s == nil {
			continue
		}
		name := uniqueSheetName(s.Experiment, used)
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %q: %w", name, err)
		}
		if err := writeExperimentSheet(f, name, s, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
		written = append(written, s)
	}

	if err := writeSummarySheet(f, written, styles); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

func newWorkbookStyles(f *excelize.File) (workbookStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return workbookStyles{}, fmt.Errorf("header style: %w", err)
	}
	number, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return workbookStyles{}, fmt.Errorf("number style: %w", err)
	}
	return workbookStyles{header: header, number: number}, nil
}

func writeExperimentSheet(f *excelize.File, sheet string, s *chromatography.ExperimentSummary, st workbookStyles) error {
	if err := writeHeader(f, sheet, experimentHeaders, st); err != nil {
		return err
	}

	for i, r := range s.Records {
		conc := any("")
		if r.Concentration != nil && r.Concentration.Computable {
			conc = r.Concentration.ConcentrationMgML
		}
		row := []any{
			r.Label, r.OriginalName, r.Order,
			r.ConversionPct, r.PurityPct,
			r.Glycerides.MonoPct, r.Glycerides.DiPct, r.Glycerides.TriPct,
			r.FAMEArea, r.FAMEPeaks, conc, strings.Join(r.Warnings, "; "),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}

	n := len(s.Records)
	if n == 0 {
		return nil
	}
	if err := numberStyle(f, sheet, "D2", cellName(11, n+1), st); err != nil {
		return err
	}

	statsRow := n + 3
	stats := [][]any{
		{"Conversion mean", s.Conversion.Mean, "std", s.Conversion.StdDev},
		{"Purity mean", s.Purity.Mean, "std", s.Purity.StdDev},
	}
	for i, row := range stats {
		if err := setRow(f, sheet, statsRow+i, row); err != nil {
			return err
		}
	}
	if err := numberStyle(f, sheet, cellName(2, statsRow), cellName(4, statsRow+1), st); err != nil {
		return err
	}

	return f.AddChart(sheet, cellName(len(experimentHeaders)+2, 2), &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			series(sheet, 4, 1, n),
			series(sheet, 5, 1, n),
		},
		Title:     []excelize.RichTextRun{{Text: s.Experiment + ": conversion and purity"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	})
}

func writeSummarySheet(f *excelize.File, summaries []*chromatography.ExperimentSummary, st workbookStyles) error {
	if err := writeHeader(f, SummarySheet, summaryHeaders, st); err != nil {
		return err
	}

	for i, s := range summaries {
		row := []any{
			s.Experiment, s.Date, len(s.Records),
			s.Conversion.Mean, s.Conversion.StdDev, s.Conversion.Min, s.Conversion.Max,
			s.Purity.Mean, s.Purity.StdDev, s.Conversion.CoefficientOfVariation(),
		}
		if err := setRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}
	}

	n := len(summaries)
	if n == 0 {
		return nil
	}
	if err := numberStyle(f, SummarySheet, "D2", cellName(len(summaryHeaders), n+1), st); err != nil {
		return err
	}

	return f.AddChart(SummarySheet, cellName(len(summaryHeaders)+2, 2), &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			series(SummarySheet, 4, 1, n),
			series(SummarySheet, 8, 1, n),
		},
		Title:     []excelize.RichTextRun{{Text: "Mean conversion and purity by experiment"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	})
}

func writeHeader(f *excelize.File, sheet string, headers []string, st workbookStyles) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := setRow(f, sheet, 1, row); err != nil {
		return err
	}
	last := cellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	lastCol := strings.TrimRight(last, "0123456789")
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if err := f.SetSheetRow(sheet, cellName(1, row), &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func numberStyle(f *excelize.File, sheet, from, to string, st workbookStyles) error {
	if err := f.SetCellStyle(sheet, from, to, st.number); err != nil {
		return fmt.Errorf("style numbers: %w", err)
	}
	return nil
}

// series plots column col against the labels in column labelCol, rows 2..n+1
func series(sheet string, col, labelCol, n int) excelize.ChartSeries {
	ref := func(c, r int) string {
		name, _ := excelize.CoordinatesToCellName(c, r, true)
		return name
	}
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	return excelize.ChartSeries{
		Name:       quoted + "!" + ref(col, 1),
		Categories: quoted + "!" + ref(labelCol, 2) + ":" + ref(labelCol, n+1),
		Values:     quoted + "!" + ref(col, 2) + ":" + ref(col, n+1),
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// uniqueSheetName strips characters Excel rejects, truncates to the length
// limit and disambiguates case-insensitive duplicates
func uniqueSheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = "Experiment"
	}

	candidate := truncateRunes(clean, maxSheetName)
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
