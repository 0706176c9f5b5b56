package services

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gcquality/internal/chromatography"
	"gcquality/internal/config"
	"gcquality/internal/exporter"
	"gcquality/internal/infrastructure"
)

// ReportService writes the processed outputs of analysed experiments
type ReportService struct {
	paths  *config.Paths
	csv    *exporter.CSVWriter
	logger *slog.Logger
}

// NewReportService creates a report service writing under paths.ReportsDir
func NewReportService(paths *config.Paths, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		paths:  paths,
		csv:    exporter.NewCSVWriter(paths),
		logger: infrastructure.WithComponent(logger, "report_service"),
	}
}

// ExportOptions selects the outputs of Export
type ExportOptions struct {
	SkipWorkbook bool
	// Report receives the plain-text summary when not nil
	Report io.Writer
}

// Export writes each experiment's results file, the consolidated JSON, the
// summary table and the xlsx report. It returns the written paths.
func (s *ReportService) Export(results []*Result, opts ExportOptions) ([]string, error) {
	if err := os.MkdirAll(s.paths.ReportsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}

	var (
		written      []string
		summaries    = make([]*chromatography.ExperimentSummary, 0, len(results))
		consolidated = make(map[string]*chromatography.ExperimentSummary, len(results))
	)

	for _, r := range results {
		if r == nil || r.Summary == nil {
			continue
		}
		path := s.experimentResultsPath(r)
		if err := exporter.WriteExperimentFile(path, r.Summary); err != nil {
			return written, err
		}
		written = append(written, path)
		summaries = append(summaries, r.Summary)
		consolidated[r.Key] = r.Summary
	}

	consolidatedPath := s.paths.GetReportPath(config.ConsolidatedResultsFile)
	if err := exporter.WriteConsolidatedFile(consolidatedPath, consolidated); err != nil {
		return written, err
	}
	written = append(written, consolidatedPath)

	if err := s.csv.WriteSummaryTable(config.SummaryTableFile, summaries); err != nil {
		return written, fmt.Errorf("summary table: %w", err)
	}
	written = append(written, s.paths.GetReportPath(config.SummaryTableFile))

	if !opts.SkipWorkbook {
		path := s.paths.GetReportPath(config.WorkbookReportFile)
		if err := exporter.WriteWorkbook(path, summaries); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if opts.Report != nil {
		if err := exporter.FormatReport(opts.Report, summaries); err != nil {
			return written, fmt.Errorf("report: %w", err)
		}
	}

	s.logger.Info("results exported",
		slog.Int("experiments", len(summaries)),
		slog.Int("files", len(written)),
		slog.String("reports_dir", s.paths.ReportsDir))
	return written, nil
}

// experimentResultsPath places the results next to the samples of an
// experiment directory, otherwise under the reports directory
func (s *ReportService) experimentResultsPath(r *Result) string {
	if info, err := os.Stat(r.Source); err == nil && info.IsDir() {
		return filepath.Join(r.Source, config.ExperimentResultsFile)
	}
	return filepath.Join(s.paths.ReportsDir, r.Key, config.ExperimentResultsFile)
}
