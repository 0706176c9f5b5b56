package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"gcquality/internal/chromatography"
)

// PeakRow is a fixture row written as Time,Height,Area
type PeakRow struct {
	Time   float64
	Height float64
	Area   float64
}

// ReactionPeaks returns a typical injection: heptane standard, methanol,
// a triglyceride-window FAME, mono/di overlap and late FAMEs
func ReactionPeaks() []PeakRow {
	return []PeakRow{
		{Time: 0.97, Height: 310, Area: 100},
		{Time: 2.30, Height: 800, Area: 400},
		{Time: 7.10, Height: 120, Area: 500},
		{Time: 8.00, Height: 260, Area: 1000},
		{Time: 10.00, Height: 2000, Area: 8000},
	}
}

// RawPeaks converts fixture rows to untyped engine input
func RawPeaks(rows []PeakRow) []chromatography.RawPeak {
	peaks := make([]chromatography.RawPeak, len(rows))
	for i, r := range rows {
		peaks[i] = chromatography.RawPeak{
			RetentionTime: r.Time,
			Area:          r.Area,
			Height:        r.Height,
			Row:           i + 2,
		}
	}
	return peaks
}

// PeakCSV renders rows as an instrument CSV export
func PeakCSV(rows []PeakRow) string {
	var b strings.Builder
	b.WriteString("Index,Time,Height,Area\n")
	for i, r := range rows {
		fmt.Fprintf(&b, "%d,%g,%g,%g\n", i+1, r.Time, r.Height, r.Area)
	}
	return b.String()
}

// WriteExperimentDir creates dir with metadata.json and one
// muestra_<name>_raw.csv per entry of samples. Samples are ordered by name
// and keep their name as nomenclature.
func WriteExperimentDir(t *testing.T, dir, experiment, date string, samples map[string][]PeakRow) {
	t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}

	type sampleMeta struct {
		Name         string `json:"nombre"`
		CSVFile      string `json:"archivo_csv"`
		Nomenclature string `json:"nomenclatura"`
		Order        int    `json:"orden"`
	}
	meta := struct {
		Experiment string       `json:"experimento"`
		Date       string       `json:"fecha"`
		Samples    []sampleMeta `json:"muestras"`
	}{Experiment: experiment, Date: date}

	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		file := "muestra_" + strings.ReplaceAll(name, ".", "_") + "_raw.csv"
		if err := os.WriteFile(filepath.Join(dir, file), []byte(PeakCSV(samples[name])), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", file, err)
		}
		meta.Samples = append(meta.Samples, sampleMeta{Name: name, CSVFile: file, Nomenclature: name, Order: i + 1})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode metadata: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
}
