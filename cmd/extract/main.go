// Command extract converts an instrument workbook into an experiment folder:
// one CSV per sample sheet, the internal standard export and metadata.json.
// The folder is what the processor command and the API analyse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gcquality/internal/config"
	"gcquality/internal/infrastructure"
	"gcquality/internal/ingest"
)

// sheetFlag collects repeated -sheet name[=label] values
type sheetFlag map[string]string

func (s sheetFlag) String() string {
	parts := make([]string, 0, len(s))
	for k, v := range s {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (s sheetFlag) Set(value string) error {
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, label, found := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty sheet name in %q", value)
		}
		if !found || strings.TrimSpace(label) == "" {
			label = name
		}
		s[name] = strings.TrimSpace(label)
	}
	return nil
}

type options struct {
	configPath string
	workbook   string
	experiment string
	date       string
	kind       string
	outDir     string
	sheets     sheetFlag
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{sheets: sheetFlag{}}
	fs.StringVar(&opts.configPath, "config", "", "path to config.yaml (defaults to the usual locations)")
	fs.StringVar(&opts.workbook, "workbook", "", "instrument .xlsx workbook (required)")
	fs.StringVar(&opts.experiment, "experiment", "", "experiment name (defaults to the file name)")
	fs.StringVar(&opts.date, "date", "", "experiment date")
	fs.StringVar(&opts.kind, "type", "", "experiment type recorded in metadata.json")
	fs.StringVar(&opts.outDir, "out", "", "output folder (defaults to <processed dir>/<experiment>)")
	fs.Var(opts.sheets, "sheet", "sheet to extract as name[=label]; repeatable, defaults to every sheet")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.workbook == "" {
		return nil, errors.New("-workbook is required")
	}
	if !strings.EqualFold(filepath.Ext(opts.workbook), ".xlsx") {
		return nil, fmt.Errorf("%s is not an .xlsx file", opts.workbook)
	}
	if opts.experiment == "" {
		base := filepath.Base(opts.workbook)
		opts.experiment = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return opts, nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logger := infrastructure.NewLogger(config.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: "text",
	}, stderr)
	ctx = infrastructure.EnsureTraceID(ctx)

	outDir := opts.outDir
	if outDir == "" {
		paths, err := config.GetPaths(cfg.Paths)
		if err != nil {
			return err
		}
		outDir = paths.GetExperimentDir(opts.experiment)
	}

	var sheets map[string]string
	if len(opts.sheets) > 0 {
		sheets = opts.sheets
	}
	wb, err := ingest.ReadWorkbook(opts.workbook, ingest.WorkbookOptions{
		Sheets:         sheets,
		StandardPrefix: cfg.Chemistry.StandardPrefix,
	})
	if err != nil {
		return err
	}
	for _, sheet := range wb.Skipped {
		logger.WarnContext(ctx, "sheet skipped", slog.String("sheet", sheet))
	}

	meta, err := ingest.Extract(wb, outDir, ingest.Metadata{
		Experiment: opts.experiment,
		Date:       opts.date,
		Type:       opts.kind,
		Source:     filepath.Base(opts.workbook),
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "workbook extracted",
		slog.String("workbook", opts.workbook),
		slog.String("dir", outDir),
		slog.Int("samples", len(meta.Samples)),
		slog.Bool("standard", wb.Standard != nil))

	fmt.Fprintf(stdout, "%s -> %s\n", opts.workbook, outDir)
	for _, s := range meta.Samples {
		fmt.Fprintf(stdout, "  %-12s %s\n", s.Nomenclature, s.CSVFile)
	}
	if wb.Standard != nil {
		fmt.Fprintf(stdout, "  %-12s %s\n", "standard", ingest.StandardFileName)
	}
	return nil
}
