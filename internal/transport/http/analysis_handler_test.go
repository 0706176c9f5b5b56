package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"gcquality/internal/chromatography"
	apierrors "gcquality/internal/errors"
	custommw "gcquality/internal/middleware"
	"gcquality/internal/services"
	"gcquality/internal/shared/testutil"
	"gcquality/internal/store"
	api "gcquality/pkg/contracts/api/v1"
)

const (
	wantConversion = 9500.0 / 9900.0 * 100
	wantPurity     = 9500.0 / 12000.0 * 100
)

func newTestRouter(t *testing.T, withStore bool) http.Handler {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	opts := services.AnalysisOptions{
		Engine:      chromatography.DefaultConfig(),
		Logger:      logger,
		Concurrency: 2,
	}
	if withStore {
		s, err := store.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		opts.Store = s
	}
	svc, err := services.NewAnalysisService(opts)
	require.NoError(t, err)

	errorHandler := apierrors.NewErrorHandler(logger, false)
	h := NewAnalysisHandler(svc, logger, errorHandler, 1<<20)

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)
	r.Mount("/api/v1", h.Routes())
	return r
}

func peakInputs(rows []testutil.PeakRow) []api.PeakInput {
	peaks := make([]api.PeakInput, len(rows))
	for i, r := range rows {
		peaks[i] = api.PeakInput{RetentionTime: r.Time, Area: r.Area, Height: r.Height}
	}
	return peaks
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func experimentRequest(samples int) api.AnalyzeExperimentRequest {
	req := api.AnalyzeExperimentRequest{Experiment: "Experiment 2", Date: "2025-11-07"}
	for i := 0; i < samples; i++ {
		req.Samples = append(req.Samples, api.AnalyzeSampleRequest{
			Label: "2." + string(rune('1'+i)),
			Peaks: peakInputs(testutil.ReactionPeaks()),
		})
	}
	return req
}

func TestAnalyzeSample(t *testing.T) {
	router := newTestRouter(t, false)

	mass := 50.0
	tests := []struct {
		name       string
		body       any
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "reaction sample",
			body: api.AnalyzeSampleRequest{
				Label:        "2.1",
				SampleMassMg: &mass,
				Peaks:        peakInputs(testutil.ReactionPeaks()),
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				record := decode[chromatography.MetricRecord](t, rec)
				assert.Equal(t, "2.1", record.Label)
				assert.InDelta(t, wantConversion, record.ConversionPct, 1e-9)
				assert.InDelta(t, wantPurity, record.PurityPct, 1e-9)
				require.NotNil(t, record.Concentration)
				assert.True(t, record.Concentration.Computable)
			},
		},
		{
			name: "string cells and a bad row",
			body: map[string]any{
				"label": "2.2",
				"peaks": []map[string]any{
					{"retention_time": "0,97", "area": "100"},
					{"retention_time": "10.00", "area": "9,500"},
					{"retention_time": "n/a", "area": "10"},
				},
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				record := decode[chromatography.MetricRecord](t, rec)
				assert.InDelta(t, 100.0, record.ConversionPct, 1e-9)
				require.Len(t, record.DroppedRows, 1)
				assert.Equal(t, 3, record.DroppedRows[0].Row)
			},
		},
		{
			name:       "missing label",
			body:       api.AnalyzeSampleRequest{Peaks: peakInputs(testutil.ReactionPeaks())},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				problem := decode[map[string]any](t, rec)
				assert.Equal(t, apierrors.TypeValidation, problem["type"])
				assert.Contains(t, rec.Body.String(), "Label")
			},
		},
		{
			name:       "malformed json",
			body:       json.RawMessage(`{"label": `),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/samples/analyze", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestAnalyzeSample_WrongContentType(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/samples/analyze", strings.NewReader("label=2.1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestAnalyzeExperiment(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		router := newTestRouter(t, false)

		rec := doJSON(t, router, http.MethodPost, "/api/v1/experiments/analyze", experimentRequest(2))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[api.ExperimentResponse](t, rec)
		assert.Empty(t, resp.RunID)
		assert.Equal(t, SourceAPI, resp.Source)
		require.NotNil(t, resp.Summary)
		assert.Equal(t, "Experiment 2", resp.Summary.Experiment)
		assert.Equal(t, 2, resp.Summary.Conversion.Count)
		assert.InDelta(t, wantConversion, resp.Summary.Conversion.Mean, 1e-9)
		assert.InDelta(t, 0.0, resp.Summary.Conversion.StdDev, 1e-9)
		assert.Equal(t, []int{1, 2}, []int{resp.Summary.Records[0].Order, resp.Summary.Records[1].Order})
	})

	t.Run("empty experiment", func(t *testing.T) {
		router := newTestRouter(t, false)

		rec := doJSON(t, router, http.MethodPost, "/api/v1/experiments/analyze", experimentRequest(0))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, apierrors.TypeEmptyExperiment, decode[map[string]any](t, rec)["type"])
	})

	t.Run("invalid nested sample", func(t *testing.T) {
		router := newTestRouter(t, false)

		req := experimentRequest(1)
		req.Samples[0].Label = ""
		rec := doJSON(t, router, http.MethodPost, "/api/v1/experiments/analyze", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "Samples[0].Label")
	})

	t.Run("body too large", func(t *testing.T) {
		router := newTestRouter(t, false)

		req := experimentRequest(1)
		req.Date = strings.Repeat("x", DefaultMaxBodyBytes)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/experiments/analyze", req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestRunsEndpoints(t *testing.T) {
	router := newTestRouter(t, true)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/experiments/analyze", experimentRequest(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.ExperimentResponse](t, rec)
	require.NotEmpty(t, created.RunID)

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decode[api.RunListResponse](t, rec)
		require.Equal(t, 1, list.Count)
		assert.Equal(t, created.RunID, list.Runs[0].ID)
		assert.Equal(t, 2, list.Runs[0].SampleCount)
		assert.InDelta(t, wantConversion, list.Runs[0].ConversionMean, 1e-9)
	})

	t.Run("get", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+created.RunID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		run := decode[api.RunResponse](t, rec)
		assert.Equal(t, "Experiment 2", run.Experiment)
		require.NotNil(t, run.Summary)
		assert.Len(t, run.Summary.Records, 2)
	})

	t.Run("samples", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+created.RunID+"/samples", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		samples := decode[api.RunSamplesResponse](t, rec)
		require.Len(t, samples.Samples, 2)
		assert.Equal(t, "2.1", samples.Samples[0].Label)
		assert.Nil(t, samples.Samples[0].ConcentrationMgML)
	})

	t.Run("report", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/runs/"+created.RunID+"/report", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Experiment_2.xlsx"`, rec.Header().Get("Content-Disposition"))

		f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		assert.Contains(t, f.GetSheetList(), "Experiment 2")
	})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantType   string
	}{
		{"unknown run", "/api/v1/runs/6f1c1f8e-8a56-4d8e-9c59-1b7a2d1f0a11", http.StatusNotFound, apierrors.TypeRunNotFound},
		{"malformed id", "/api/v1/runs/not-a-uuid", http.StatusBadRequest, apierrors.TypeValidation},
		{"bad limit", "/api/v1/runs?limit=abc", http.StatusBadRequest, apierrors.TypeValidation},
		{"limit out of range", "/api/v1/runs?limit=0", http.StatusBadRequest, apierrors.TypeValidation},
		{"unknown route", "/api/v1/nothing", http.StatusNotFound, apierrors.TypeNotFound},
		{"report of unknown run", "/api/v1/runs/6f1c1f8e-8a56-4d8e-9c59-1b7a2d1f0a11/report", http.StatusNotFound, apierrors.TypeRunNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, decode[map[string]any](t, rec)["type"])
		})
	}

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/runs/"+created.RunID, nil)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = doJSON(t, router, http.MethodGet, "/api/v1/runs/"+created.RunID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = doJSON(t, router, http.MethodDelete, "/api/v1/runs/"+created.RunID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRunsEndpoints_StoreDisabled(t *testing.T) {
	router := newTestRouter(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apierrors.TypeServiceDown, decode[map[string]any](t, rec)["type"])
}

func TestComponents(t *testing.T) {
	router := newTestRouter(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/components", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.ComponentsResponse](t, rec)
	assert.Len(t, resp.Windows, len(chromatography.DefaultWindows()))
	assert.Equal(t, chromatography.Heptane, resp.Standard.Component)
	assert.InDelta(t, 10.38, resp.StandardConcentration, 1e-9)
}

func workbookUpload(t *testing.T, filename string, fields map[string][]string) *http.Request {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "2.1"))
	rows := [][]interface{}{{"Index", "Time", "Height", "Area"}}
	for i, p := range testutil.ReactionPeaks() {
		rows = append(rows, []interface{}{i + 1, p.Time, p.Height, p.Area})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("2.1", cell, &row))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = f.WriteTo(part)
	require.NoError(t, err)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workbooks/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeWorkbook(t *testing.T) {
	t.Run("upload", func(t *testing.T) {
		router := newTestRouter(t, true)

		req := workbookUpload(t, "reaction.xlsx", map[string][]string{
			"experiment": {"Experiment 3"},
			"sheet":      {"2.1=R1"},
		})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[api.ExperimentResponse](t, rec)
		assert.NotEmpty(t, resp.RunID)
		assert.Equal(t, "reaction.xlsx", resp.Source)
		require.Len(t, resp.Summary.Records, 1)
		assert.Equal(t, "R1", resp.Summary.Records[0].Label)
		assert.InDelta(t, wantConversion, resp.Summary.Records[0].ConversionPct, 1e-9)
	})

	t.Run("wrong extension", func(t *testing.T) {
		router := newTestRouter(t, false)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, workbookUpload(t, "reaction.csv", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not a workbook", func(t *testing.T) {
		router := newTestRouter(t, false)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "broken.xlsx")
		require.NoError(t, err)
		_, _ = part.Write([]byte("not a zip"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/workbooks/analyze", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, apierrors.TypeInputFormat, decode[map[string]any](t, rec)["type"])
	})

	t.Run("missing file", func(t *testing.T) {
		router := newTestRouter(t, false)

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("experiment", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/workbooks/analyze", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestParseSheets(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   map[string]string
	}{
		{"none", nil, nil},
		{"plain names", []string{"2.1", "2.2"}, map[string]string{"2.1": "2.1", "2.2": "2.2"}},
		{"mapped and comma list", []string{"Hoja1=R1, Hoja2"}, map[string]string{"Hoja1": "R1", "Hoja2": "Hoja2"}},
		{"blank label", []string{"Hoja1="}, map[string]string{"Hoja1": "Hoja1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSheets(tt.values))
		})
	}
}
