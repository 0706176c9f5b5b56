package http

import (
	"context"
	"io"

	"github.com/google/uuid"

	"gcquality/internal/chromatography"
	"gcquality/internal/services"
	"gcquality/internal/store"
)

// AnalysisServiceInterface is the subset of services.AnalysisService used by
// the handlers
type AnalysisServiceInterface interface {
	AnalyzeSample(ctx context.Context, sample chromatography.Sample) chromatography.MetricRecord
	AnalyzeExperiment(ctx context.Context, key, source string, exp chromatography.Experiment) (*services.Result, error)
	AnalyzeWorkbook(ctx context.Context, r io.Reader, req services.WorkbookRequest) (*services.Result, error)
	GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
	ListRunSamples(ctx context.Context, id uuid.UUID) ([]store.SampleRow, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
	Windows() []chromatography.ComponentWindow
	Standard() chromatography.InternalStandard
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
