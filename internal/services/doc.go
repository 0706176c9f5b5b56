// Package services holds the application services behind the CLI and the
// HTTP API.
//
// AnalysisService wraps the chromatography engine with ingestion, the
// optional results store, structured logging, tracing and metrics. The
// engine never logs, so dropped rows and missing internal standards are
// reported here as warnings.
//
// ReportService writes the processed outputs of one or more experiments
// (JSON, summary CSV, xlsx report). HealthService backs /api/health.
package services
