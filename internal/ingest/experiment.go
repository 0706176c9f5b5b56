package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gcquality/internal/chromatography"
)

// sampleGlob matches the per-sample exports of an experiment directory
const sampleGlob = "muestra_*_raw.csv"

// SkippedFile is a sample file that could not be read
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ExperimentData is an experiment directory ready for aggregation
type ExperimentData struct {
	Dir        string                    `json:"dir"`
	Key        string                    `json:"key"`
	Metadata   Metadata                  `json:"metadata"`
	Experiment chromatography.Experiment `json:"-"`
	Skipped    []SkippedFile             `json:"skipped,omitempty"`
}

// LoadExperimentDir reads metadata.json and every muestra_*_raw.csv of dir.
// Files are read in name order; nomenclature, order and mass come from the
// metadata, falling back to the file key and order 0. Unreadable files are
// reported in Skipped.
func LoadExperimentDir(dir string) (*ExperimentData, error) {
	meta, err := LoadMetadata(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]SampleMeta, len(meta.Samples))
	for _, s := range meta.Samples {
		byKey[s.Key()] = s
	}

	files, err := filepath.Glob(filepath.Join(dir, sampleGlob))
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	sort.Strings(files)

	data := &ExperimentData{
		Dir:      dir,
		Key:      filepath.Base(dir),
		Metadata: *meta,
		Experiment: chromatography.Experiment{
			Name: meta.Experiment,
			Date: meta.Date,
		},
	}
	if data.Experiment.Name == "" {
		data.Experiment.Name = data.Key
	}

	for _, file := range files {
		key := SampleKey(file)
		peaks, err := ReadCSVFile(file)
		if err != nil {
			data.Skipped = append(data.Skipped, SkippedFile{File: filepath.Base(file), Reason: err.Error()})
			continue
		}

		sample := chromatography.Sample{
			Label:        key,
			OriginalName: key,
			Peaks:        peaks,
		}
		if m, ok := byKey[key]; ok {
			if m.Nomenclature != "" {
				sample.Label = m.Nomenclature
			}
			sample.Order = m.Order
			sample.SampleMassMg = m.MassMg
		}
		data.Experiment.Samples = append(data.Experiment.Samples, sample)
	}
	return data, nil
}

// FindExperimentDirs returns the subdirectories of root holding a
// metadata.json, sorted by name
func FindExperimentDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// Extract writes one muestra_<name>_raw.csv per workbook sample, plus the
// internal standard as estandar_interno_raw.csv, and a metadata.json listing
// them. meta supplies the experiment fields; its sample list is replaced.
func Extract(wb *Workbook, dir string, meta Metadata) (*Metadata, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if meta.Source == "" {
		meta.Source = wb.Source
	}
	meta.Samples = make([]SampleMeta, 0, len(wb.Samples))

	for i, t := range wb.Samples {
		file := SampleFileName(t.Name)
		if err := writeTable(filepath.Join(dir, file), t); err != nil {
			return nil, err
		}
		meta.Samples = append(meta.Samples, SampleMeta{
			Name:         t.Sheet,
			CSVFile:      file,
			Nomenclature: t.Name,
			Order:        i + 1,
		})
	}

	if wb.Standard != nil {
		if err := writeTable(filepath.Join(dir, StandardFileName), *wb.Standard); err != nil {
			return nil, err
		}
	}

	if err := WriteMetadata(filepath.Join(dir, MetadataFile), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// StandardFileName is the CSV export of the internal-standard injection
const StandardFileName = "estandar_interno_raw.csv"

func writeTable(path string, t SheetTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, t.Header, t.Rows); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
