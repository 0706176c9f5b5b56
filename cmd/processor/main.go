// Command processor analyses experiment directories or an xlsx workbook and
// writes the per-experiment results, the consolidated JSON, the summary table
// and the xlsx report. The final summary is printed to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gcquality/internal/config"
	"gcquality/internal/infrastructure"
	"gcquality/internal/services"
	"gcquality/internal/store"
	"gcquality/pkg/contracts"
)

type options struct {
	configPath  string
	dataDir     string
	workbook    string
	experiment  string
	date        string
	reportsDir  string
	dbPath      string
	noWorkbook  bool
	concurrency int
	verbose     bool
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("processor", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults to the usual locations)")
	fs.StringVar(&opts.dataDir, "data", "", "root directory of experiment folders (defaults to the processed dir)")
	fs.StringVar(&opts.workbook, "workbook", "", "analyse one .xlsx workbook instead of experiment folders")
	fs.StringVar(&opts.experiment, "experiment", "", "experiment name for -workbook (defaults to the file name)")
	fs.StringVar(&opts.date, "date", "", "experiment date for -workbook")
	fs.StringVar(&opts.reportsDir, "out", "", "output directory for reports (defaults to the reports dir)")
	fs.StringVar(&opts.dbPath, "db", "", "SQLite file to record runs in")
	fs.BoolVar(&opts.noWorkbook, "no-xlsx", false, "skip the xlsx report")
	fs.IntVar(&opts.concurrency, "concurrency", 0, "samples processed in parallel (0 uses the config)")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	fs.BoolVar(&opts.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.workbook != "" && opts.dataDir != "" {
		return nil, errors.New("-workbook and -data are mutually exclusive")
	}
	return opts, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "processor: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	if opts.concurrency > 0 {
		cfg.Chemistry.Concurrency = opts.concurrency
	}
	logger := infrastructure.NewLogger(config.LoggingConfig{
		Level:       cfg.Logging.Level,
		Format:      "text",
		Development: cfg.Logging.Development,
	}, stderr)
	ctx = infrastructure.EnsureTraceID(ctx)

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return err
	}
	if opts.reportsDir != "" {
		paths.ReportsDir = opts.reportsDir
	}
	if opts.dataDir == "" && opts.workbook == "" {
		opts.dataDir = paths.ProcessedDir
	}

	engine, err := cfg.Chemistry.EngineConfig()
	if err != nil {
		return fmt.Errorf("invalid chemistry configuration: %w", err)
	}

	analysisOpts := services.AnalysisOptions{
		Engine:         engine,
		Logger:         logger,
		Concurrency:    cfg.Chemistry.Concurrency,
		StandardPrefix: cfg.Chemistry.StandardPrefix,
	}
	if opts.dbPath != "" {
		s, err := store.Open(ctx, opts.dbPath)
		if err != nil {
			return fmt.Errorf("failed to open results store: %w", err)
		}
		defer s.Close()
		analysisOpts.Store = s
	}

	svc, err := services.NewAnalysisService(analysisOpts)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Starting chromatogram processing",
		slog.String("data_dir", opts.dataDir),
		slog.String("workbook", opts.workbook),
		slog.String("reports_dir", paths.ReportsDir),
		slog.Bool("store", opts.dbPath != ""))

	results, analyzeErr := analyze(ctx, svc, opts)
	if len(results) == 0 {
		return analyzeErr
	}
	if analyzeErr != nil {
		logger.WarnContext(ctx, "some experiments failed", slog.String("error", analyzeErr.Error()))
	}

	reports := services.NewReportService(paths, logger)
	written, err := reports.Export(results, services.ExportOptions{
		SkipWorkbook: opts.noWorkbook,
		Report:       stdout,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Files written:")
	for _, path := range written {
		fmt.Fprintf(stdout, "  %s\n", path)
	}
	for _, r := range results {
		if r.RunID != nil {
			fmt.Fprintf(stdout, "Run %s recorded for %s\n", r.RunID, r.Key)
		}
	}
	return nil
}

func analyze(ctx context.Context, svc *services.AnalysisService, opts *options) ([]*services.Result, error) {
	if opts.workbook == "" {
		return svc.AnalyzeTree(ctx, opts.dataDir)
	}

	f, err := os.Open(opts.workbook)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	result, err := svc.AnalyzeWorkbook(ctx, f, services.WorkbookRequest{
		Source:     filepath.Clean(opts.workbook),
		Experiment: opts.experiment,
		Date:       opts.date,
	})
	if err != nil {
		return nil, err
	}
	return []*services.Result{result}, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
