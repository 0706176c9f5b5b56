// Package exporter writes experiment summaries to disk.
//
// Outputs mirror the lab workflow:
//
//	resultados_procesados.json   one experiment (WriteExperimentFile)
//	resultados_consolidados.json all experiments keyed by directory (WriteConsolidatedFile)
//	tabla_resumen.csv            one row per sample (WriteSummaryTable)
//	reporte_cromatogramas.xlsx   one sheet per experiment plus charts (WriteWorkbook)
//
// FormatReport renders the plain-text end-of-run summary.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(paths)
//	err := w.WriteSummaryTable(config.SummaryTableFile, summaries)
package exporter
