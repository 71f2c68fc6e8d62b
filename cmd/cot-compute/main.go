// Command cot-compute runs the COT compute pipeline once and publishes the
// derived tables, QA report and manifest.
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
	"syscall"

	"cotcli/internal/config"
	apperrors "cotcli/internal/errors"
	"cotcli/internal/infrastructure"
	"cotcli/internal/operations"
)

// Process exit codes.
const (
	exitOK     = 0
	exitFatal  = 1
	exitUsage  = 2
	exitLocked = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cot-compute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config.yaml (default: search config.yaml, configs/config.yaml)")
	root := fs.String("root", "", "project root that relative paths resolve against")
	canonical := fs.String("canonical", "", "canonical weekly COT csv")
	markets := fs.String("markets", "", "markets.yaml")
	out := fs.String("out", "", "compute output directory")
	yes := fs.Bool("yes", false, "overwrite existing outputs")
	xlsx := fs.Bool("xlsx", false, "also write the market views workbook")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitUsage
	}
	if *root != "" {
		cfg.Paths.Root = *root
	}
	if *canonical != "" {
		cfg.Paths.Canonical = *canonical
	}
	if *markets != "" {
		cfg.Paths.Markets = *markets
	}
	if *out != "" {
		cfg.Paths.ComputeDir = *out
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return exitFatal
	}
	defer closeLog()
	logger = infrastructure.WithComponent(logger, "cot-compute")

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		logger.Error("failed to resolve paths", slog.String("error", err.Error()))
		return exitUsage
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(cfg.OTel, logger)
	if err != nil {
		logger.Error("failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFatal
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	pipeline, err := operations.NewPipeline(paths, cfg.Compute, logger, providers)
	if err != nil {
		logger.Error("failed to build pipeline", slog.String("error", err.Error()))
		return exitFatal
	}

	manifest, err := pipeline.Run(ctx, operations.Options{
		Overwrite: *yes,
		Workbook:  *xlsx || cfg.Compute.XLSX,
	})
	code := exitCode(err)
	switch code {
	case exitOK:
		fmt.Fprintf(stdout, "run %s succeeded: %d outputs in %s (qa: %d errors, %d warnings)\n",
			manifest.RunID, len(manifest.Outputs), paths.ComputeDir, manifest.QA.Errors, manifest.QA.Warnings)
	case exitUsage:
		fmt.Fprintln(stderr, err)
	default:
		fmt.Fprintf(stderr, "run %s failed: %v\n", manifest.RunID, err)
	}
	return code
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, operations.ErrOutputsExist):
		return exitUsage
	case apperrors.IsType(err, apperrors.ErrTypeLocked):
		return exitLocked
	default:
		return exitFatal
	}
}
