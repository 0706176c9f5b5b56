package exporter

import (
	"fmt"
	"io"
	"strings"

	"gcquality/internal/chromatography"
)

const reportRule = 80

// FormatReport writes the plain-text summary of all experiments
func FormatReport(w io.Writer, summaries []*chromatography.ExperimentSummary) error {
	var b strings.Builder
	rule := strings.Repeat("=", reportRule)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "EXPERIMENT SUMMARY")
	fmt.Fprintln(&b, rule)

	for _, s := range summaries {
		if s == nil {
			continue
		}
		fmt.Fprintln(&b)
		if s.Date != "" {
			fmt.Fprintf(&b, "%s (%s):\n", s.Experiment, s.Date)
		} else {
			fmt.Fprintf(&b, "%s:\n", s.Experiment)
		}
		fmt.Fprintf(&b, "  Samples analysed: %d\n", len(s.Records))
		fmt.Fprintf(&b, "  Mean conversion: %.2f%% ± %.2f%%\n", s.Conversion.Mean, s.Conversion.StdDev)
		fmt.Fprintf(&b, "  Conversion range: %.2f%% .. %.2f%%\n", s.Conversion.Min, s.Conversion.Max)
		fmt.Fprintf(&b, "  Mean purity: %.2f%% ± %.2f%%\n", s.Purity.Mean, s.Purity.StdDev)
		fmt.Fprintf(&b, "  Coefficient of variation: %.2f%%\n", s.Conversion.CoefficientOfVariation())
		if n := s.DroppedRowCount(); n > 0 {
			fmt.Fprintf(&b, "  Rows dropped while cleaning: %d\n", n)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
