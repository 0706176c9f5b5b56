package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gcquality/internal/chromatography"
	apierrors "gcquality/internal/errors"
	"gcquality/internal/infrastructure"
	"gcquality/internal/ingest"
	"gcquality/internal/store"
)

// RunStore persists analysis runs
type RunStore interface {
	SaveRun(ctx context.Context, source string, summary *chromatography.ExperimentSummary) (uuid.UUID, error)
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ListSamples(ctx context.Context, id uuid.UUID) ([]store.SampleRow, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
}

// AnalysisOptions configures an AnalysisService. Engine is required; the
// other fields fall back to no store, no-op telemetry and slog.Default().
type AnalysisOptions struct {
	Engine         chromatography.Config
	Store          RunStore
	Providers      *infrastructure.OTelProviders
	Logger         *slog.Logger
	Concurrency    int
	StandardPrefix string
	Clock          func() time.Time
}

// Result is one analysed experiment
type Result struct {
	Key     string                            `json:"key"`
	Source  string                            `json:"source,omitempty"`
	RunID   *uuid.UUID                        `json:"run_id,omitempty"`
	Summary *chromatography.ExperimentSummary `json:"summary"`
	Skipped []ingest.SkippedFile              `json:"skipped,omitempty"`
}

// AnalysisService runs the engine over samples, experiments, directories
// and workbooks
type AnalysisService struct {
	aggregator     *chromatography.Aggregator
	store          RunStore
	tracer         trace.Tracer
	metrics        *infrastructure.AnalysisMetrics
	logger         *slog.Logger
	standardPrefix string
	now            func() time.Time
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(opts AnalysisOptions) (*AnalysisService, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providers := opts.Providers
	if providers == nil {
		providers = infrastructure.NoopProviders(logger)
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	aggregator, err := chromatography.NewAggregator(opts.Engine,
		chromatography.WithConcurrency(opts.Concurrency),
		chromatography.WithClock(now),
	)
	if err != nil {
		return nil, fmt.Errorf("engine configuration: %w", err)
	}

	metrics, err := infrastructure.NewAnalysisMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("analysis metrics: %w", err)
	}

	prefix := opts.StandardPrefix
	if prefix == "" {
		prefix = ingest.DefaultStandardPrefix
	}

	return &AnalysisService{
		aggregator:     aggregator,
		store:          opts.Store,
		tracer:         providers.Tracer,
		metrics:        metrics,
		logger:         infrastructure.WithComponent(logger, "analysis_service"),
		standardPrefix: prefix,
		now:            now,
	}, nil
}

// Windows returns the configured component catalogue
func (s *AnalysisService) Windows() []chromatography.ComponentWindow {
	return s.aggregator.Processor().Calculator().Windows().Windows()
}

// Standard returns the configured internal standard
func (s *AnalysisService) Standard() chromatography.InternalStandard {
	return s.aggregator.Processor().Calculator().Standard()
}

// StoreEnabled reports whether runs are persisted
func (s *AnalysisService) StoreEnabled() bool {
	return s.store != nil
}

// AnalyzeSample computes the metrics of one sample
func (s *AnalysisService) AnalyzeSample(ctx context.Context, sample chromatography.Sample) chromatography.MetricRecord {
	ctx, span := s.tracer.Start(ctx, "analysis.sample",
		trace.WithAttributes(
			attribute.String("sample.label", sample.Label),
			attribute.Int("sample.rows", len(sample.Peaks)),
		))
	defer span.End()

	rec := s.aggregator.Processor().Process(sample)
	s.observeRecords(ctx, "", []chromatography.MetricRecord{rec})

	span.SetAttributes(
		attribute.Float64("sample.conversion_pct", rec.ConversionPct),
		attribute.Float64("sample.purity_pct", rec.PurityPct),
	)
	return rec
}

// AnalyzeExperiment aggregates the samples of an experiment and stores the
// run when a store is configured. key identifies the experiment in
// consolidated output and defaults to its name.
func (s *AnalysisService) AnalyzeExperiment(ctx context.Context, key, source string, exp chromatography.Experiment) (*Result, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "analysis.experiment",
		trace.WithAttributes(
			attribute.String("experiment.name", exp.Name),
			attribute.Int("experiment.samples", len(exp.Samples)),
		))
	defer span.End()

	if key == "" {
		key = exp.Name
	}

	summary, err := s.aggregator.Aggregate(ctx, exp)
	if err != nil {
		s.recordExperiment(ctx, "error", start)
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "experiment analysis failed",
			slog.String("experiment", exp.Name),
			slog.String("error", err.Error()))
		return nil, apierrors.NewAnalysisError("experiment analysis failed", err).WithContext("experiment", exp.Name)
	}

	s.observeRecords(ctx, exp.Name, summary.Records)

	result := &Result{Key: key, Source: source, Summary: summary}
	if s.store != nil {
		id, err := s.store.SaveRun(ctx, source, summary)
		if err != nil {
			s.recordExperiment(ctx, "error", start)
			infrastructure.RecordError(ctx, err)
			return nil, apierrors.NewStorageError("failed to save run", err).WithContext("experiment", exp.Name)
		}
		result.RunID = &id
		span.SetAttributes(attribute.String("run.id", id.String()))
	}

	s.recordExperiment(ctx, "ok", start)
	s.logger.InfoContext(ctx, "experiment analysed",
		slog.String("experiment", exp.Name),
		slog.Int("samples", len(summary.Records)),
		slog.Float64("conversion_mean", summary.Conversion.Mean),
		slog.Float64("conversion_std", summary.Conversion.StdDev),
		slog.Float64("purity_mean", summary.Purity.Mean),
		slog.Float64("purity_std", summary.Purity.StdDev))

	return result, nil
}

// AnalyzeDirectory analyses an extracted experiment directory
func (s *AnalysisService) AnalyzeDirectory(ctx context.Context, dir string) (*Result, error) {
	data, err := ingest.LoadExperimentDir(dir)
	if err != nil {
		return nil, apierrors.NewParsingError("failed to load experiment directory", err).WithContext("dir", dir)
	}

	for _, skipped := range data.Skipped {
		s.logger.WarnContext(ctx, "sample file skipped",
			slog.String("experiment", data.Experiment.Name),
			slog.String("file", skipped.File),
			slog.String("reason", skipped.Reason))
	}

	result, err := s.AnalyzeExperiment(ctx, data.Key, dir, data.Experiment)
	if err != nil {
		return nil, err
	}
	result.Skipped = data.Skipped
	return result, nil
}

// AnalyzeTree analyses every experiment directory below root in name order.
// Directories that fail are logged and reported in the joined error; the
// successful results are returned alongside it.
func (s *AnalysisService) AnalyzeTree(ctx context.Context, root string) ([]*Result, error) {
	dirs, err := ingest.FindExperimentDirs(root)
	if err != nil {
		return nil, err
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoExperiments, root)
	}

	var (
		results []*Result
		errs    []error
	)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.AnalyzeDirectory(ctx, dir)
		if err != nil {
			s.logger.ErrorContext(ctx, "experiment directory failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(dir), err))
			continue
		}
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

// WorkbookRequest describes an uploaded or local workbook
type WorkbookRequest struct {
	Source     string
	Experiment string
	Date       string
	Sheets     map[string]string
}

// AnalyzeWorkbook analyses the sample sheets of an xlsx workbook as one
// experiment named after the request or the workbook file
func (s *AnalysisService) AnalyzeWorkbook(ctx context.Context, r io.Reader, req WorkbookRequest) (*Result, error) {
	wb, err := ingest.ReadWorkbookFrom(r, req.Source, ingest.WorkbookOptions{
		Sheets:         req.Sheets,
		StandardPrefix: s.standardPrefix,
	})
	if err != nil {
		return nil, err
	}

	for _, sheet := range wb.Skipped {
		s.logger.WarnContext(ctx, "sheet skipped",
			slog.String("source", req.Source),
			slog.String("sheet", sheet))
	}
	if wb.Standard != nil {
		s.logger.DebugContext(ctx, "internal standard sheet found",
			slog.String("sheet", wb.Standard.Sheet),
			slog.Int("peaks", len(wb.Standard.Peaks)))
	}

	name := req.Experiment
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(req.Source), filepath.Ext(req.Source))
	}

	return s.AnalyzeExperiment(ctx, name, req.Source, chromatography.Experiment{
		Name:    name,
		Date:    req.Date,
		Samples: wb.ToSamples(),
	})
}

// GetRun returns a stored run
func (s *AnalysisService) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	if s.store == nil {
		return nil, store.ErrDisabled
	}
	return s.store.GetRun(ctx, id)
}

// ListRuns returns the most recent stored runs
func (s *AnalysisService) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if s.store == nil {
		return nil, store.ErrDisabled
	}
	return s.store.ListRuns(ctx, limit)
}

// ListRunSamples returns the flattened samples of a stored run
func (s *AnalysisService) ListRunSamples(ctx context.Context, id uuid.UUID) ([]store.SampleRow, error) {
	if s.store == nil {
		return nil, store.ErrDisabled
	}
	return s.store.ListSamples(ctx, id)
}

// DeleteRun removes a stored run and its samples
func (s *AnalysisService) DeleteRun(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return store.ErrDisabled
	}
	if err := s.store.DeleteRun(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "run deleted", slog.String("run_id", id.String()))
	return nil
}

// observeRecords logs data-quality warnings and updates the sample counters
func (s *AnalysisService) observeRecords(ctx context.Context, experiment string, records []chromatography.MetricRecord) {
	var dropped, missing int64
	for _, r := range records {
		if n := len(r.DroppedRows); n > 0 {
			dropped += int64(n)
			s.logger.WarnContext(ctx, "unparsable rows dropped",
				slog.String("experiment", experiment),
				slog.String("sample", r.Label),
				slog.Int("count", n),
				slog.String("first_reason", r.DroppedRows[0].Reason))
		}
		if r.Concentration != nil && !r.Concentration.Computable {
			if errors.Is(r.Concentration.Err(), chromatography.ErrMissingInternalStandard) {
				missing++
			}
			s.logger.WarnContext(ctx, "concentration not computable",
				slog.String("experiment", experiment),
				slog.String("sample", r.Label),
				slog.String("reason", r.Concentration.Reason))
		}
		if r.TotalPeaks == 0 {
			s.logger.WarnContext(ctx, "sample has no usable peaks",
				slog.String("experiment", experiment),
				slog.String("sample", r.Label))
		}
	}

	s.metrics.SamplesProcessed.Add(ctx, int64(len(records)))
	if dropped > 0 {
		s.metrics.RowsDropped.Add(ctx, dropped)
	}
	if missing > 0 {
		s.metrics.MissingStandard.Add(ctx, missing)
	}
}

func (s *AnalysisService) recordExperiment(ctx context.Context, status string, start time.Time) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	s.metrics.ExperimentsAnalyzed.Add(ctx, 1, attrs)
	s.metrics.AnalysisDuration.Record(ctx, s.now().Sub(start).Seconds(), attrs)
}
