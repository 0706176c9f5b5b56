package api

import (
	"time"

	"gcquality/internal/chromatography"
	"gcquality/internal/ingest"
	"gcquality/internal/store"
)

// ExperimentResponse is the result of an experiment or workbook analysis.
// RunID is set only when the run was persisted.
type ExperimentResponse struct {
	RunID   string                            `json:"run_id,omitempty"`
	Source  string                            `json:"source,omitempty"`
	Summary *chromatography.ExperimentSummary `json:"summary"`
	Skipped []ingest.SkippedFile              `json:"skipped,omitempty"`
}

// RunItem is one entry of the run listing
type RunItem struct {
	ID             string    `json:"id"`
	Experiment     string    `json:"experiment"`
	Date           string    `json:"date,omitempty"`
	Source         string    `json:"source,omitempty"`
	SampleCount    int       `json:"sample_count"`
	ConversionMean float64   `json:"conversion_mean"`
	ConversionStd  float64   `json:"conversion_std"`
	PurityMean     float64   `json:"purity_mean"`
	PurityStd      float64   `json:"purity_std"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRunItem maps a stored run to its listing entry
func NewRunItem(run store.Run) RunItem {
	return RunItem{
		ID:             run.ID.String(),
		Experiment:     run.Experiment,
		Date:           run.Date,
		Source:         run.Source,
		SampleCount:    run.SampleCount,
		ConversionMean: run.ConversionMean,
		ConversionStd:  run.ConversionStd,
		PurityMean:     run.PurityMean,
		PurityStd:      run.PurityStd,
		CreatedAt:      run.CreatedAt,
	}
}

// RunListResponse lists stored runs, newest first
type RunListResponse struct {
	Runs  []RunItem `json:"runs"`
	Count int       `json:"count"`
}

// RunResponse is a stored run with its full summary
type RunResponse struct {
	RunItem
	Summary *chromatography.ExperimentSummary `json:"summary"`
}

// SampleItem is one stored per-sample row
type SampleItem struct {
	Position          int      `json:"position"`
	Label             string   `json:"label"`
	OriginalName      string   `json:"original_name,omitempty"`
	Order             int      `json:"order"`
	ConversionPct     float64  `json:"conversion_fames_pct"`
	PurityPct         float64  `json:"purity_biodiesel_pct"`
	MonoPct           float64  `json:"monoglycerides_pct"`
	DiPct             float64  `json:"diglycerides_pct"`
	TriPct            float64  `json:"triglycerides_pct"`
	FAMEArea          float64  `json:"fame_area"`
	ConcentrationMgML *float64 `json:"concentration_mg_ml,omitempty"`
}

// RunSamplesResponse lists the samples of one run
type RunSamplesResponse struct {
	RunID   string       `json:"run_id"`
	Samples []SampleItem `json:"samples"`
}

// ComponentsResponse describes the configured chemistry
type ComponentsResponse struct {
	Windows               []chromatography.ComponentWindow `json:"windows"`
	Standard              chromatography.InternalStandard  `json:"internal_standard"`
	StandardConcentration float64                          `json:"standard_concentration_mg_ml"`
}
