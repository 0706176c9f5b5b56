package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"gcquality/internal/chromatography"
	apierrors "gcquality/internal/errors"
	"gcquality/internal/exporter"
	custommw "gcquality/internal/middleware"
	"gcquality/internal/services"
	"gcquality/internal/store"
	api "gcquality/pkg/contracts/api/v1"
)

const (
	// SourceAPI marks runs submitted as JSON
	SourceAPI = "api"
	// DefaultMaxBodyBytes bounds JSON request bodies
	DefaultMaxBodyBytes = 8 << 20
	// maxListLimit bounds GET /runs?limit=
	maxListLimit = 500
	// multipartMemory is the part of an upload kept in memory
	multipartMemory = 8 << 20
	// xlsxContentType is the media type of the run report download
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// AnalysisHandler serves the analysis and run endpoints
type AnalysisHandler struct {
	service        AnalysisServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	maxBodyBytes   int64
	maxUploadBytes int64
}

// NewAnalysisHandler creates an analysis handler. Non-positive limits select
// the defaults.
func NewAnalysisHandler(service AnalysisServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64) *AnalysisHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxBodyBytes
	}
	return &AnalysisHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "analysis_handler")),
		errorHandler:   errorHandler,
		maxBodyBytes:   DefaultMaxBodyBytes,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes returns the v1 analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Group(func(r chi.Router) {
		r.Use(custommw.RequireContentType("application/json"))
		r.Post("/samples/analyze", h.AnalyzeSample)
		r.Post("/experiments/analyze", h.AnalyzeExperiment)
	})
	r.With(custommw.RequireContentType("multipart/form-data")).Post("/workbooks/analyze", h.AnalyzeWorkbook)

	r.Get("/components", h.Components)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", h.ListRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.RunCtx)
			r.Get("/", h.GetRun)
			r.Delete("/", h.DeleteRun)
			r.Get("/samples", h.ListRunSamples)
			r.Get("/report", h.RunReport)
		})
	})

	return r
}

type runIDKey struct{}

// RunCtx validates the {id} parameter and stores the parsed run ID
func (h *AnalysisHandler) RunCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("id", "run id must be a UUID"))
			return
		}
		ctx := contextWithRunID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AnalyzeSample handles POST /api/v1/samples/analyze
func (h *AnalysisHandler) AnalyzeSample(w http.ResponseWriter, r *http.Request) {
	req := &api.AnalyzeSampleRequest{}
	if !h.bind(w, r, req) {
		return
	}

	record := h.service.AnalyzeSample(r.Context(), req.ToSample())
	render.JSON(w, r, record)
}

// AnalyzeExperiment handles POST /api/v1/experiments/analyze
func (h *AnalysisHandler) AnalyzeExperiment(w http.ResponseWriter, r *http.Request) {
	req := &api.AnalyzeExperimentRequest{}
	if !h.bind(w, r, req) {
		return
	}

	h.logger.InfoContext(r.Context(), "analysing experiment",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("experiment", req.Experiment),
		slog.Int("samples", len(req.Samples)),
	)

	result, err := h.service.AnalyzeExperiment(r.Context(), req.Experiment, SourceAPI, req.ToExperiment())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, experimentResponse(result))
}

// AnalyzeWorkbook handles POST /api/v1/workbooks/analyze. The multipart form
// carries the workbook in "file" and optional "experiment", "date" and
// repeated "sheet" fields; a sheet field is either a sheet name or
// "sheet=label".
func (h *AnalysisHandler) AnalyzeWorkbook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(min(h.maxUploadBytes, multipartMemory)); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "an .xlsx workbook is required"))
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "only .xlsx workbooks are supported"))
		return
	}

	req := services.WorkbookRequest{
		Source:     header.Filename,
		Experiment: strings.TrimSpace(r.FormValue("experiment")),
		Date:       strings.TrimSpace(r.FormValue("date")),
		Sheets:     parseSheets(r.MultipartForm.Value["sheet"]),
	}

	h.logger.InfoContext(r.Context(), "analysing workbook",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size),
	)

	result, err := h.service.AnalyzeWorkbook(r.Context(), file, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, experimentResponse(result))
}

// Components handles GET /api/v1/components
func (h *AnalysisHandler) Components(w http.ResponseWriter, r *http.Request) {
	std := h.service.Standard()
	render.JSON(w, r, api.ComponentsResponse{
		Windows:               h.service.Windows(),
		Standard:              std,
		StandardConcentration: std.ConcentrationMgML(),
	})
}

// ListRuns handles GET /api/v1/runs?limit=n
func (h *AnalysisHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	req := api.ListRunsRequest{Limit: store.DefaultListLimit}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", "limit must be an integer"))
			return
		}
		req.Limit = n
	}
	if err := api.Validator().Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("limit", fmt.Sprintf("limit must be between 1 and %d", maxListLimit)))
		return
	}

	runs, err := h.service.ListRuns(r.Context(), req.Limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.RunListResponse{Runs: make([]api.RunItem, 0, len(runs)), Count: len(runs)}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, api.NewRunItem(run))
	}
	render.JSON(w, r, resp)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *AnalysisHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := runIDFromContext(r.Context())

	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.RunResponse{RunItem: api.NewRunItem(*run), Summary: run.Summary})
}

// DeleteRun handles DELETE /api/v1/runs/{id}
func (h *AnalysisHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	id := runIDFromContext(r.Context())

	if err := h.service.DeleteRun(r.Context(), id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunReport handles GET /api/v1/runs/{id}/report, the xlsx report of one
// stored run
func (h *AnalysisHandler) RunReport(w http.ResponseWriter, r *http.Request) {
	id := runIDFromContext(r.Context())

	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	summary := run.Summary
	if summary == nil {
		summary = &chromatography.ExperimentSummary{Experiment: run.Experiment, Date: run.Date}
	}

	var buf bytes.Buffer
	if err := exporter.WriteWorkbookTo(&buf, []*chromatography.ExperimentSummary{summary}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", reportFileName(run)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "report download interrupted",
			slog.String("run_id", id.String()),
			slog.String("error", err.Error()))
	}
}

// ListRunSamples handles GET /api/v1/runs/{id}/samples
func (h *AnalysisHandler) ListRunSamples(w http.ResponseWriter, r *http.Request) {
	id := runIDFromContext(r.Context())

	rows, err := h.service.ListRunSamples(r.Context(), id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := api.RunSamplesResponse{RunID: id.String(), Samples: make([]api.SampleItem, 0, len(rows))}
	for _, row := range rows {
		resp.Samples = append(resp.Samples, api.SampleItem{
			Position:          row.Position,
			Label:             row.Label,
			OriginalName:      row.OriginalName,
			Order:             row.Order,
			ConversionPct:     row.ConversionPct,
			PurityPct:         row.PurityPct,
			MonoPct:           row.MonoPct,
			DiPct:             row.DiPct,
			TriPct:            row.TriPct,
			FAMEArea:          row.FAMEArea,
			ConcentrationMgML: row.ConcentrationMgML,
		})
	}
	render.JSON(w, r, resp)
}

// bind decodes and validates a JSON body. Decode failures are reported as
// invalid requests, validation failures per field.
func (h *AnalysisHandler) bind(w http.ResponseWriter, r *http.Request, v render.Binder) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	err := render.Bind(r, v)
	if err == nil {
		return true
	}

	var (
		verrs  validator.ValidationErrors
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verrs), errors.As(err, &maxErr):
		h.errorHandler.HandleError(w, r, err)
	default:
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
	}
	return false
}

func experimentResponse(result *services.Result) api.ExperimentResponse {
	resp := api.ExperimentResponse{
		Source:  result.Source,
		Summary: result.Summary,
		Skipped: result.Skipped,
	}
	if result.RunID != nil {
		resp.RunID = result.RunID.String()
	}
	return resp
}

// reportFileName derives an ASCII download name from the experiment name
func reportFileName(run *store.Run) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, run.Experiment)
	if name == "" {
		name = run.ID.String()
	}
	return name + ".xlsx"
}

// parseSheets turns "sheet" or "sheet=label" values into a sheet selection.
// Nil means every sheet.
func parseSheets(values []string) map[string]string {
	var sheets map[string]string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if sheets == nil {
				sheets = make(map[string]string)
			}
			name, label, found := strings.Cut(item, "=")
			name = strings.TrimSpace(name)
			if !found || strings.TrimSpace(label) == "" {
				label = name
			}
			sheets[name] = strings.TrimSpace(label)
		}
	}
	return sheets
}
