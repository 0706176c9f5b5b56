// Package api contains the HTTP API contracts of the GC quality service.
// Version v1 represents the current stable API version.
package api

import (
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"

	"gcquality/internal/chromatography"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared request validator
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// PeakInput is one row of a peak table. Values may be numbers or numeric
// strings; rows that cannot be parsed are dropped and reported.
type PeakInput struct {
	RetentionTime any `json:"retention_time"`
	Area          any `json:"area"`
	Height        any `json:"height,omitempty"`
}

// AnalyzeSampleRequest carries one sample's peak table
type AnalyzeSampleRequest struct {
	Label        string      `json:"label" validate:"required,max=128"`
	OriginalName string      `json:"original_name,omitempty" validate:"max=256"`
	Order        int         `json:"order" validate:"min=0"`
	SampleMassMg *float64    `json:"sample_mass_mg,omitempty"`
	Peaks        []PeakInput `json:"peaks" validate:"max=10000"`
}

// Bind implements the render.Binder interface
func (req *AnalyzeSampleRequest) Bind(r *http.Request) error {
	return Validator().Struct(req)
}

// ToSample converts the request into an engine sample. Peak rows are numbered
// from 1 in request order.
func (req *AnalyzeSampleRequest) ToSample() chromatography.Sample {
	peaks := make([]chromatography.RawPeak, len(req.Peaks))
	for i, p := range req.Peaks {
		peaks[i] = chromatography.RawPeak{
			RetentionTime: p.RetentionTime,
			Area:          p.Area,
			Height:        p.Height,
			Row:           i + 1,
		}
	}
	return chromatography.Sample{
		Label:        req.Label,
		OriginalName: req.OriginalName,
		Order:        req.Order,
		SampleMassMg: req.SampleMassMg,
		Peaks:        peaks,
	}
}

// AnalyzeExperimentRequest carries every sample of one experiment. An empty
// sample list is accepted here and rejected by the analysis as an empty
// experiment.
type AnalyzeExperimentRequest struct {
	Experiment string                 `json:"experiment" validate:"required,max=128"`
	Date       string                 `json:"date,omitempty" validate:"max=64"`
	Samples    []AnalyzeSampleRequest `json:"samples" validate:"max=1000,dive"`
}

// Bind implements the render.Binder interface
func (req *AnalyzeExperimentRequest) Bind(r *http.Request) error {
	return Validator().Struct(req)
}

// ToExperiment converts the request into an engine experiment. Samples
// without an explicit order take their 1-based position.
func (req *AnalyzeExperimentRequest) ToExperiment() chromatography.Experiment {
	samples := make([]chromatography.Sample, len(req.Samples))
	for i := range req.Samples {
		samples[i] = req.Samples[i].ToSample()
		if samples[i].Order == 0 {
			samples[i].Order = i + 1
		}
	}
	return chromatography.Experiment{
		Name:    req.Experiment,
		Date:    req.Date,
		Samples: samples,
	}
}

// ListRunsRequest holds the query parameters of GET /api/v1/runs
type ListRunsRequest struct {
	Limit int `json:"limit" query:"limit" validate:"min=1,max=500"`
}
