package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MetadataFile is the experiment descriptor inside an experiment directory
const MetadataFile = "metadata.json"

// Metadata describes one experiment. The JSON keys follow the files the
// laboratory already keeps next to the CSV exports.
type Metadata struct {
	Experiment string         `json:"experimento"`
	Date       string         `json:"fecha"`
	Source     string         `json:"fuente,omitempty"`
	Type       string         `json:"tipo,omitempty"`
	Conditions map[string]any `json:"condiciones,omitempty"`
	Samples    []SampleMeta   `json:"muestras"`
}

// SampleMeta describes one sample file of an experiment
type SampleMeta struct {
	Name         string   `json:"nombre"`
	CSVFile      string   `json:"archivo_csv"`
	Nomenclature string   `json:"nomenclatura,omitempty"`
	Order        int      `json:"orden,omitempty"`
	MassMg       *float64 `json:"peso_muestra_mg,omitempty"`
}

// Key returns the sample key derived from its CSV file name
func (s SampleMeta) Key() string {
	return SampleKey(s.CSVFile)
}

// LoadMetadata reads a metadata.json file
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}
	return &meta, nil
}

// WriteMetadata writes a metadata.json file with indentation
func WriteMetadata(path string, meta *Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// SampleFileName returns the CSV file name of a sample, "2.1" becoming
// "muestra_2_1_raw.csv"
func SampleFileName(name string) string {
	name = strings.TrimPrefix(strings.ReplaceAll(name, ".", "_"), "muestra_")
	return "muestra_" + name + "_raw.csv"
}

// SampleKey strips the directory, extension and the muestra_/_raw markers
// from a sample file name
func SampleKey(file string) string {
	base := filepath.Base(filepath.ToSlash(file))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimPrefix(base, "muestra_")
	return strings.TrimSuffix(base, "_raw")
}
