// Command cot-api serves the latest published compute snapshot over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"cotcli/internal/app"
	"cotcli/internal/config"
	"cotcli/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search config.yaml, configs/config.yaml)")
	port := flag.Int("port", 0, "listen port (overrides config)")
	root := flag.String("root", "", "project root that relative paths resolve against")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *root != "" {
		cfg.Paths.Root = *root
	}

	logger, closeLog, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		logger.Error("application stopped with error", slog.String("error", err.Error()))
		closeLog()
		os.Exit(1)
	}
	closeLog()
}
