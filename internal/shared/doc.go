// Package shared holds helpers used across gcquality packages.
//
// testutil provides a buffered slog handler for log assertions and
// chromatography fixtures (samples, experiment directories) for tests.
package shared
