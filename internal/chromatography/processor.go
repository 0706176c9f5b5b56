package chromatography

import "fmt"

// Processor turns one raw sample into a MetricRecord
type Processor struct {
	calc *Calculator
}

// NewProcessor creates a sample processor for the given configuration
func NewProcessor(cfg Config) (*Processor, error) {
	calc, err := NewCalculator(cfg)
	if err != nil {
		return nil, err
	}
	return &Processor{calc: calc}, nil
}

// Calculator returns the underlying metrics calculator
func (p *Processor) Calculator() *Calculator {
	return p.calc
}

// Process cleans the raw rows and computes all metrics. It never fails:
// malformed rows are dropped and a sample without usable peaks yields
// all-zero metrics.
func (p *Processor) Process(s Sample) MetricRecord {
	cleaned := Clean(s.Peaks)
	rec := p.ProcessPeaks(s, cleaned.Peaks)
	if len(cleaned.Dropped) > 0 {
		rec.DroppedRows = cleaned.Dropped
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("%d unparsable rows dropped", len(cleaned.Dropped)))
	}
	return rec
}

// ProcessPeaks computes the metrics of already-cleaned peaks
func (p *Processor) ProcessPeaks(s Sample, peaks []Peak) MetricRecord {
	c := p.calc

	famePeaks, _ := c.windows.Classify(peaks, FAMEs)
	rec := MetricRecord{
		Label:         s.Label,
		OriginalName:  s.OriginalName,
		Order:         s.Order,
		ConversionPct: c.Conversion(peaks),
		PurityPct:     c.Purity(peaks),
		Glycerides:    c.Glycerides(peaks),
		StandardArea:  c.StandardArea(peaks),
		FAMEArea:      TotalArea(famePeaks),
		TotalPeaks:    len(peaks),
		FAMEPeaks:     len(famePeaks),
	}

	if len(peaks) == 0 {
		rec.Warnings = append(rec.Warnings, "no usable peaks")
	}
	if excl := c.TotalAreaExcludingStandard(peaks); excl < 0 {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf("negative standard-excluded area %.4f", excl))
	}

	if s.SampleMassMg != nil {
		q := c.Quantify(peaks, *s.SampleMassMg)
		rec.Concentration = &q
		if !q.Computable {
			rec.Warnings = append(rec.Warnings, "concentration not computable: "+q.Reason)
		}
	}
	return rec
}
