package chromatography

import "time"

// Component names a chemical species identified by retention time
type Component string

const (
	// Heptane is the internal standard
	Heptane Component = "heptane"
	// Methanol is the excess reagent
	Methanol Component = "methanol"
	// FAMEs are the fatty acid methyl esters (biodiesel)
	FAMEs Component = "fames"
	// Monoglycerides are partially reacted oil
	Monoglycerides Component = "monoglycerides"
	// Diglycerides are partially reacted oil
	Diglycerides Component = "diglycerides"
	// Triglycerides are unreacted oil
	Triglycerides Component = "triglycerides"
)

// String returns the component name
func (c Component) String() string {
	return string(c)
}

// Peak is one cleaned chromatographic feature
type Peak struct {
	RetentionTime float64  `json:"retention_time"` // minutes
	Area          float64  `json:"area"`
	Height        *float64 `json:"height,omitempty"`
	Row           int      `json:"row,omitempty"` // source row, 0 when unknown
}

// RawPeak is a peak row before numeric coercion. Fields hold whatever the
// ingestion layer produced: strings, numbers, json.Number or nil.
type RawPeak struct {
	RetentionTime any `json:"retention_time"`
	Area          any `json:"area"`
	Height        any `json:"height,omitempty"`
	Row           int `json:"row,omitempty"`
}

// Sample is one analytical run of an experiment
type Sample struct {
	Label        string    `json:"label"`
	OriginalName string    `json:"original_name,omitempty"`
	Order        int       `json:"order"`
	SampleMassMg *float64  `json:"sample_mass_mg,omitempty"`
	Peaks        []RawPeak `json:"peaks"`
}

// GlycerideComposition holds residual glyceride percentages relative to the
// standard-excluded total area
type GlycerideComposition struct {
	MonoPct float64 `json:"monoglycerides_pct"`
	DiPct   float64 `json:"diglycerides_pct"`
	TriPct  float64 `json:"triglycerides_pct"`
}

// Quantification is the absolute FAME concentration obtained with the internal
// standard. Computable is false when no standard peak was detected or the
// sample mass is not positive; ConcentrationMgML is then 0.
type Quantification struct {
	ConcentrationMgML float64 `json:"concentration_mg_ml"`
	Computable        bool    `json:"computable"`
	Reason            string  `json:"reason,omitempty"`
}

// Reasons recorded on a Quantification that is not computable
const (
	ReasonNoStandardPeak = "no internal standard peak detected"
	ReasonInvalidMass    = "sample mass must be positive"
)

// Err explains a non-computable value: ErrInvalidSampleMass for a bad mass,
// ErrMissingInternalStandard otherwise
func (q Quantification) Err() error {
	switch {
	case q.Computable:
		return nil
	case q.Reason == ReasonInvalidMass:
		return ErrInvalidSampleMass
	default:
		return ErrMissingInternalStandard
	}
}

// DroppedRow describes a raw row excluded during cleaning
type DroppedRow struct {
	Row    int    `json:"row"`
	Index  int    `json:"index"` // position in the raw slice
	Reason string `json:"reason"`
}

// MetricRecord is the per-sample result. It is a value type and is never
// mutated after Process returns.
type MetricRecord struct {
	Label         string               `json:"label"`
	OriginalName  string               `json:"original_name,omitempty"`
	Order         int                  `json:"order"`
	ConversionPct float64              `json:"conversion_fames_pct"`
	PurityPct     float64              `json:"purity_biodiesel_pct"`
	Glycerides    GlycerideComposition `json:"glycerides"`
	Concentration *Quantification      `json:"concentration,omitempty"`
	StandardArea  float64              `json:"standard_area"`
	FAMEArea      float64              `json:"fame_area"`
	TotalPeaks    int                  `json:"total_peaks"`
	FAMEPeaks     int                  `json:"fame_peaks"`
	DroppedRows   []DroppedRow         `json:"dropped_rows,omitempty"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// Statistics describes one metric across the samples of an experiment
type Statistics struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"` // population standard deviation
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Count  int     `json:"count"`
}

// CoefficientOfVariation returns StdDev/Mean in percent, 0 when Mean is 0
func (s Statistics) CoefficientOfVariation() float64 {
	if s.Mean == 0 {
		return 0
	}
	return s.StdDev / s.Mean * 100
}

// ExperimentSummary groups the records of one experiment with their statistics
type ExperimentSummary struct {
	Experiment string         `json:"experiment"`
	Date       string         `json:"date,omitempty"`
	Records    []MetricRecord `json:"samples"`
	Conversion Statistics     `json:"conversion"`
	Purity     Statistics     `json:"purity"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DroppedRowCount returns the number of rows discarded across all samples
func (s *ExperimentSummary) DroppedRowCount() int {
	n := 0
	for _, r := range s.Records {
		n += len(r.DroppedRows)
	}
	return n
}
