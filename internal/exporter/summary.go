package exporter

import (
	"io"
	"sort"
	"strconv"

	"gcquality/internal/chromatography"
)

// SummaryHeaders are the columns of the per-sample summary table
var SummaryHeaders = []string{
	"Experiment",
	"Date",
	"Sample",
	"OriginalName",
	"Order",
	"Conversion %",
	"Purity %",
	"Mono %",
	"Di %",
	"Tri %",
	"FAME area",
	"FAME peaks",
	"Concentration mg/mL",
}

// SummaryRow is one sample of one experiment
type SummaryRow struct {
	Experiment string
	Date       string
	Record     chromatography.MetricRecord
}

// FlattenSummaries lists every sample sorted by experiment then order;
// samples sharing an order keep their input position
func FlattenSummaries(summaries []*chromatography.ExperimentSummary) []SummaryRow {
	var rows []SummaryRow
	for _, s := range summaries {
		if s == nil {
			continue
		}
		for _, r := range s.Records {
			rows = append(rows, SummaryRow{Experiment: s.Experiment, Date: s.Date, Record: r})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Experiment != rows[j].Experiment {
			return rows[i].Experiment < rows[j].Experiment
		}
		return rows[i].Record.Order < rows[j].Record.Order
	})
	return rows
}

// SummaryRows renders the summary table records
func SummaryRows(summaries []*chromatography.ExperimentSummary) [][]string {
	flat := FlattenSummaries(summaries)
	records := make([][]string, 0, len(flat))
	for _, row := range flat {
		r := row.Record
		original := r.OriginalName
		if original == "" {
			original = r.Label
		}
		records = append(records, []string{
			row.Experiment,
			row.Date,
			r.Label,
			original,
			strconv.Itoa(r.Order),
			formatFloat(r.ConversionPct),
			formatFloat(r.PurityPct),
			formatFloat(r.Glycerides.MonoPct),
			formatFloat(r.Glycerides.DiPct),
			formatFloat(r.Glycerides.TriPct),
			formatFloat(r.FAMEArea),
			strconv.Itoa(r.FAMEPeaks),
			formatConcentration(r.Concentration),
		})
	}
	return records
}

// WriteSummaryTable writes the summary table to out
func WriteSummaryTable(out io.Writer, summaries []*chromatography.ExperimentSummary, bom bool) error {
	return writeCSV(out, WriteOptions{
		Headers:   SummaryHeaders,
		Records:   SummaryRows(summaries),
		BOMPrefix: bom,
	})
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// formatConcentration leaves the cell empty when no value was requested or computable
func formatConcentration(q *chromatography.Quantification) string {
	if q == nil || !q.Computable {
		return ""
	}
	return formatFloat(q.ConcentrationMgML)
}
