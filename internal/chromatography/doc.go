// Package chromatography computes biodiesel quality metrics from gas-chromatography
// peak tables.
//
// # Core Components
//
// The engine is a straight pipeline over already-detected peaks:
//
//  1. WindowTable: retention-time windows per chemical component (windows.go)
//  2. Classification: stable filter of peaks inside a component window (classifier.go)
//  3. Area aggregation: total, per-component and standard-excluded areas (area.go)
//  4. Calculator: conversion, purity, glyceride composition and internal-standard
//     quantification for one sample (calculator.go)
//  5. Processor: permissive cleaning of raw rows and one MetricRecord per sample
//     (cleaner.go, processor.go)
//  6. Aggregator: per-experiment statistics over all samples (aggregator.go, statistics.go)
//
// # Usage Example
//
//	cfg := chromatography.DefaultConfig()
//	agg, err := chromatography.NewAggregator(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := agg.Aggregate(ctx, "Experimento 1", samples)
//	if errors.Is(err, chromatography.ErrEmptyExperiment) {
//	    // nothing to summarise
//	}
//
// # Overlapping Windows
//
// Component windows may overlap (the FAME window contains the glyceride windows).
// Each component is classified independently, so a single peak can contribute to
// several component areas. Percentages are therefore not expected to sum to 100.
//
// # Degenerate Data
//
// Empty windows, zero denominators and unparsable rows resolve to 0.0 metrics or
// empty peak slices. A sample without an internal-standard peak reports its
// concentration as not computable. Only an experiment with no samples fails.
//
// The package performs no I/O and holds no mutable state; a WindowTable and an
// InternalStandard are fixed at construction and may be shared across goroutines.
package chromatography
