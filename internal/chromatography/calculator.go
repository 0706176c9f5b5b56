package chromatography

import "fmt"

// Calculator derives the per-sample quality metrics from cleaned peaks
type Calculator struct {
	windows  *WindowTable
	standard InternalStandard
}

// NewCalculator creates a calculator for a validated configuration
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("calculator config: %w", err)
	}
	return &Calculator{
		windows:  cfg.Windows,
		standard: cfg.Standard,
	}, nil
}

// Windows returns the window table used for classification
func (c *Calculator) Windows() *WindowTable {
	return c.windows
}

// Standard returns the internal-standard parameters
func (c *Calculator) Standard() InternalStandard {
	return c.standard
}

// area returns the area of a component known to be catalogued
func (c *Calculator) area(peaks []Peak, comp Component) float64 {
	a, err := c.windows.ComponentArea(peaks, comp)
	if err != nil {
		// unreachable for components checked by Config.Validate
		return 0
	}
	return a
}

// StandardArea returns the area of the internal standard
func (c *Calculator) StandardArea(peaks []Peak) float64 {
	return c.area(peaks, c.standard.Component)
}

// TotalAreaExcludingStandard returns the total area minus the standard area
func (c *Calculator) TotalAreaExcludingStandard(peaks []Peak) float64 {
	return TotalArea(peaks) - c.StandardArea(peaks)
}

// Conversion returns area(FAMEs) / standard-excluded total area × 100, or 0
// when that total is not positive
func (c *Calculator) Conversion(peaks []Peak) float64 {
	total := c.TotalAreaExcludingStandard(peaks)
	if total <= 0 {
		return 0
	}
	return c.area(peaks, FAMEs) / total * 100
}

// Purity returns area(FAMEs) / (FAMEs + mono + di + tri) × 100, or 0 when the
// denominator is 0
func (c *Calculator) Purity(peaks []Peak) float64 {
	fames := c.area(peaks, FAMEs)
	products := fames +
		c.area(peaks, Monoglycerides) +
		c.area(peaks, Diglycerides) +
		c.area(peaks, Triglycerides)
	if products == 0 {
		return 0
	}
	return fames / products * 100
}

// Glycerides returns mono/di/tri areas relative to the standard-excluded
// total. A non-positive total is replaced by 1.
func (c *Calculator) Glycerides(peaks []Peak) GlycerideComposition {
	total := c.TotalAreaExcludingStandard(peaks)
	if total <= 0 {
		total = 1
	}
	return GlycerideComposition{
		MonoPct: c.area(peaks, Monoglycerides) / total * 100,
		DiPct:   c.area(peaks, Diglycerides) / total * 100,
		TriPct:  c.area(peaks, Triglycerides) / total * 100,
	}
}

// Quantify computes the absolute FAME concentration:
//
//	C = (A_FAMEs / A_std) × (m_std / m_sample) × C_std
//
// Without a standard peak, or with a non-positive sample mass, the result is
// marked not computable instead of failing.
func (c *Calculator) Quantify(peaks []Peak, sampleMassMg float64) Quantification {
	stdArea := c.StandardArea(peaks)
	if stdArea == 0 {
		return Quantification{Reason: ReasonNoStandardPeak}
	}
	if sampleMassMg <= 0 {
		return Quantification{Reason: ReasonInvalidMass}
	}

	ratio := c.area(peaks, FAMEs) / stdArea
	conc := ratio * (c.standard.MassMg / sampleMassMg) * c.standard.ConcentrationMgML()
	return Quantification{ConcentrationMgML: conc, Computable: true}
}
