package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"gcquality/internal/chromatography"
	"gcquality/internal/infrastructure"
	"gcquality/internal/shared/testutil"
	"gcquality/internal/store"
)

type testEnv struct {
	svc    *AnalysisService
	logs   *testutil.LogCapture
	spans  *tracetest.InMemoryExporter
	reader *sdkmetric.ManualReader
}

func newTestEnv(t *testing.T, withStore bool) *testEnv {
	t.Helper()

	logger, logs := testutil.NewTestLogger(t)
	spans := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		tp.Shutdown(context.Background())
		mp.Shutdown(context.Background())
	})

	opts := AnalysisOptions{
		Engine: chromatography.DefaultConfig(),
		Providers: &infrastructure.OTelProviders{
			Tracer: tp.Tracer("test"),
			Meter:  mp.Meter("test"),
			Logger: logger,
		},
		Logger:      logger,
		Concurrency: 2,
		Clock:       func() time.Time { return time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC) },
	}
	if withStore {
		s, err := store.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		opts.Store = s
	}

	svc, err := NewAnalysisService(opts)
	require.NoError(t, err)
	return &testEnv{svc: svc, logs: logs, spans: spans, reader: reader}
}

// counter sums every data point of the named int64 counter
func (e *testEnv) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, e.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func reactionSample(label string, order int) chromatography.Sample {
	return chromatography.Sample{
		Label: label,
		Order: order,
		Peaks: testutil.RawPeaks(testutil.ReactionPeaks()),
	}
}

func TestNewAnalysisService_InvalidEngine(t *testing.T) {
	cfg := chromatography.DefaultConfig()
	cfg.Standard.MassMg = 0

	_, err := NewAnalysisService(AnalysisOptions{Engine: cfg})
	assert.ErrorIs(t, err, chromatography.ErrInvalidStandard)
}

func TestAnalyzeSample(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.svc.AnalyzeSample(context.Background(), reactionSample("2.1", 1))

	assert.InDelta(t, 9500.0/9900.0*100, rec.ConversionPct, 1e-9)
	assert.InDelta(t, 9500.0/12000.0*100, rec.PurityPct, 1e-9)
	assert.Equal(t, int64(1), env.counter(t, "gcq_samples_processed_total"))

	spans := env.spans.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "analysis.sample", spans[0].Name)
}

func TestAnalyzeExperiment(t *testing.T) {
	mass := 50.0
	broken := reactionSample("2.3", 3)
	broken.Peaks = append(broken.Peaks, chromatography.RawPeak{RetentionTime: "n/a", Area: "12", Row: 9})
	noStandard := chromatography.Sample{
		Label:        "2.4",
		Order:        4,
		SampleMassMg: &mass,
		Peaks:        []chromatography.RawPeak{{RetentionTime: 9.0, Area: 100.0}},
	}
	zero := 0.0
	badMass := reactionSample("2.5", 5)
	badMass.SampleMassMg = &zero

	tests := []struct {
		name        string
		samples     []chromatography.Sample
		wantErr     error
		wantSamples int
		wantLog     string
		wantDropped int64
		wantMissing int64
	}{
		{
			name:        "clean experiment",
			samples:     []chromatography.Sample{reactionSample("2.1", 1), reactionSample("2.2", 2)},
			wantSamples: 2,
			wantLog:     "experiment analysed",
		},
		{
			name:        "dropped rows are reported",
			samples:     []chromatography.Sample{broken},
			wantSamples: 1,
			wantLog:     "unparsable rows dropped",
			wantDropped: 1,
		},
		{
			name:        "missing internal standard is reported",
			samples:     []chromatography.Sample{noStandard},
			wantSamples: 1,
			wantLog:     "concentration not computable",
			wantMissing: 1,
		},
		{
			name:        "invalid sample mass is not a missing standard",
			samples:     []chromatography.Sample{badMass},
			wantSamples: 1,
			wantLog:     "concentration not computable",
		},
		{
			name:    "empty experiment",
			wantErr: chromatography.ErrEmptyExperiment,
			wantLog: "experiment analysis failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, true)
			ctx := context.Background()

			result, err := env.svc.AnalyzeExperiment(ctx, "Experimento1", "test", chromatography.Experiment{
				Name:    "Exp 1",
				Date:    "2025-11-07",
				Samples: tt.samples,
			})
			assert.True(t, env.logs.ContainsMessage(tt.wantLog), "expected log %q", tt.wantLog)
			assert.Equal(t, int64(1), env.counter(t, "gcq_experiments_analyzed_total"))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, "Experimento1", result.Key)
			require.NotNil(t, result.RunID)
			assert.Len(t, result.Summary.Records, tt.wantSamples)
			assert.Equal(t, tt.wantDropped, env.counter(t, "gcq_rows_dropped_total"))
			assert.Equal(t, tt.wantMissing, env.counter(t, "gcq_missing_standard_total"))

			run, err := env.svc.GetRun(ctx, *result.RunID)
			require.NoError(t, err)
			assert.Equal(t, "Exp 1", run.Experiment)
			assert.Equal(t, tt.wantSamples, run.SampleCount)

			samples, err := env.svc.ListRunSamples(ctx, *result.RunID)
			require.NoError(t, err)
			assert.Len(t, samples, tt.wantSamples)

			require.NoError(t, env.svc.DeleteRun(ctx, *result.RunID))
			assert.True(t, env.logs.ContainsMessage("run deleted"))
			_, err = env.svc.GetRun(ctx, *result.RunID)
			assert.ErrorIs(t, err, store.ErrRunNotFound)
		})
	}
}

func TestAnalyzeExperiment_Cancelled(t *testing.T) {
	env := newTestEnv(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.AnalyzeExperiment(ctx, "", "", chromatography.Experiment{
		Name:    "Exp",
		Samples: []chromatography.Sample{reactionSample("a", 1)},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunsWithoutStore(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	assert.False(t, env.svc.StoreEnabled())

	result, err := env.svc.AnalyzeExperiment(ctx, "", "", chromatography.Experiment{
		Name:    "Exp",
		Samples: []chromatography.Sample{reactionSample("a", 1)},
	})
	require.NoError(t, err)
	assert.Nil(t, result.RunID)
	assert.Equal(t, "Exp", result.Key)

	_, err = env.svc.GetRun(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrDisabled)
	_, err = env.svc.ListRuns(ctx, 10)
	assert.ErrorIs(t, err, store.ErrDisabled)
	_, err = env.svc.ListRunSamples(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrDisabled)
	assert.ErrorIs(t, env.svc.DeleteRun(ctx, uuid.New()), store.ErrDisabled)
}

func TestAnalyzeTree(t *testing.T) {
	env := newTestEnv(t, false)
	root := t.TempDir()

	testutil.WriteExperimentDir(t, filepath.Join(root, "Experimento1"), "Exp 1", "2025-11-07",
		map[string][]testutil.PeakRow{"2.1": testutil.ReactionPeaks(), "2.2": testutil.ReactionPeaks()})
	testutil.WriteExperimentDir(t, filepath.Join(root, "Experimento2"), "Exp 2", "2025-11-08",
		map[string][]testutil.PeakRow{"3.1": testutil.ReactionPeaks()})
	// metadata without sample files
	testutil.WriteExperimentDir(t, filepath.Join(root, "Experimento3"), "Exp 3", "2025-11-09", nil)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))

	results, err := env.svc.AnalyzeTree(context.Background(), root)
	assert.ErrorIs(t, err, chromatography.ErrEmptyExperiment)
	require.Len(t, results, 2)

	assert.Equal(t, "Experimento1", results[0].Key)
	assert.Equal(t, "Exp 1", results[0].Summary.Experiment)
	assert.Len(t, results[0].Summary.Records, 2)
	assert.Equal(t, "2.1", results[0].Summary.Records[0].Label)
	assert.Equal(t, "Experimento2", results[1].Key)
	assert.True(t, env.logs.ContainsMessage("experiment directory failed"))

	_, err = env.svc.AnalyzeTree(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoExperiments)
}

func TestAnalyzeWorkbook(t *testing.T) {
	env := newTestEnv(t, false)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "2.1"))
	rows := [][]interface{}{
		{"Peak", "Time (min)", "Area", "Height"},
		{1, 0.97, 100, 310},
		{2, 10.0, 900, 2000},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("2.1", cell, &row))
	}
	_, err := f.NewSheet("STD INT_07_11_2025")
	require.NoError(t, err)
	for i, row := range rows[:2] {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("STD INT_07_11_2025", cell, &row))
	}

	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.NoError(t, err)

	result, err := env.svc.AnalyzeWorkbook(context.Background(), &buf, WorkbookRequest{
		Source: "uploads/reaction_07_11.xlsx",
		Date:   "2025-11-07",
	})
	require.NoError(t, err)

	assert.Equal(t, "reaction_07_11", result.Summary.Experiment)
	require.Len(t, result.Summary.Records, 1)
	assert.Equal(t, "2.1", result.Summary.Records[0].Label)
	assert.InDelta(t, 100.0, result.Summary.Records[0].ConversionPct, 1e-9)
}

func TestComponents(t *testing.T) {
	env := newTestEnv(t, false)

	windows := env.svc.Windows()
	require.Len(t, windows, len(chromatography.DefaultWindows()))
	assert.Equal(t, chromatography.Heptane, windows[0].Component)
	assert.Equal(t, chromatography.DefaultInternalStandard(), env.svc.Standard())
}
