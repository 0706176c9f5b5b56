package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gcquality/internal/chromatography"
)

// WriteExperimentJSON writes one experiment summary as indented JSON
func WriteExperimentJSON(w io.Writer, summary *chromatography.ExperimentSummary) error {
	return encodeJSON(w, summary)
}

// WriteConsolidatedJSON writes all summaries keyed by experiment key
func WriteConsolidatedJSON(w io.Writer, summaries map[string]*chromatography.ExperimentSummary) error {
	return encodeJSON(w, summaries)
}

// WriteExperimentFile writes one experiment summary to path
func WriteExperimentFile(path string, summary *chromatography.ExperimentSummary) error {
	return writeFile(path, func(w io.Writer) error { return WriteExperimentJSON(w, summary) })
}

// WriteConsolidatedFile writes all summaries keyed by experiment key to path
func WriteConsolidatedFile(path string, summaries map[string]*chromatography.ExperimentSummary) error {
	return writeFile(path, func(w io.Writer) error { return WriteConsolidatedJSON(w, summaries) })
}

// writeFile creates path and its parent directories and hands the file to write
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
