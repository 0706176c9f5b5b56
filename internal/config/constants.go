package config

import (
	"time"

	"gcquality/pkg/contracts"
)

// Application constants
const (
	// Application Info
	AppName    = "gcquality"
	AppVersion = contracts.Version

	// EnvPrefix namespaces environment variables, e.g. GCQ_SERVER_PORT
	EnvPrefix = "GCQ"

	// Rate Limiting
	DefaultRateLimit = 50 // requests per second
	DefaultBurstSize = 100

	// HTTP limits
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxUploadBytes = 32 << 20 // 32MB

	// File Paths (relative to executable)
	DefaultDataDir      = "data"
	DefaultProcessedDir = "data/Procesados"
	DefaultReportsDir   = "data/reports"
	DefaultLogsDir      = "logs"
	DefaultLogFile      = "logs/gcquality.log"
	DefaultStoreDSN     = "data/gcquality.db"

	// Well-known outputs
	ExperimentResultsFile   = "resultados_procesados.json"
	ConsolidatedResultsFile = "resultados_consolidados.json"
	SummaryTableFile        = "tabla_resumen.csv"
	WorkbookReportFile      = "reporte_cromatogramas.xlsx"
)
