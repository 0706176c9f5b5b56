package chromatography

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Experiment is a named set of samples analysed together
type Experiment struct {
	Name    string   `json:"experiment"`
	Date    string   `json:"date,omitempty"`
	Samples []Sample `json:"samples"`
}

// Aggregator runs the processor over every sample of an experiment and
// computes the cross-sample statistics
type Aggregator struct {
	processor      *Processor
	maxConcurrency int
	now            func() time.Time
}

// AggregatorOption configures an Aggregator
type AggregatorOption func(*Aggregator)

// WithConcurrency bounds the number of samples processed in parallel
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConcurrency = n
		}
	}
}

// WithClock overrides the summary timestamp source
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an experiment aggregator
func NewAggregator(cfg Config, opts ...AggregatorOption) (*Aggregator, error) {
	proc, err := NewProcessor(cfg)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		processor:      proc,
		maxConcurrency: runtime.GOMAXPROCS(0),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Processor returns the sample processor
func (a *Aggregator) Processor() *Processor {
	return a.processor
}

// Aggregate processes all samples, keeping input order, and summarises
// conversion and purity. An experiment without samples fails with
// ErrEmptyExperiment; the context only bounds the wait for the workers.
func (a *Aggregator) Aggregate(ctx context.Context, exp Experiment) (*ExperimentSummary, error) {
	if len(exp.Samples) == 0 {
		return nil, fmt.Errorf("aggregate %q: %w", exp.Name, ErrEmptyExperiment)
	}

	records := make([]MetricRecord, len(exp.Samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)
	for i := range exp.Samples {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = a.processor.Process(exp.Samples[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate %q: %w", exp.Name, err)
	}

	return Summarize(exp.Name, exp.Date, records, a.now())
}

// Summarize builds an ExperimentSummary from existing records
func Summarize(name, date string, records []MetricRecord, createdAt time.Time) (*ExperimentSummary, error) {
	conversions := make([]float64, len(records))
	purities := make([]float64, len(records))
	for i, r := range records {
		conversions[i] = r.ConversionPct
		purities[i] = r.PurityPct
	}

	conv, err := Describe(conversions)
	if err != nil {
		return nil, fmt.Errorf("summarize %q: %w", name, err)
	}
	pur, err := Describe(purities)
	if err != nil {
		return nil, fmt.Errorf("summarize %q: %w", name, err)
	}

	return &ExperimentSummary{
		Experiment: name,
		Date:       date,
		Records:    records,
		Conversion: conv,
		Purity:     pur,
		CreatedAt:  createdAt,
	}, nil
}
