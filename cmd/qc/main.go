package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/skewtlabs/sonde-qc/internal/adapter/http"
	kafkaadapter "github.com/skewtlabs/sonde-qc/internal/adapter/kafka"
	"github.com/skewtlabs/sonde-qc/internal/config"
	"github.com/skewtlabs/sonde-qc/internal/observability"
	"github.com/skewtlabs/sonde-qc/internal/pipeline"
	"github.com/skewtlabs/sonde-qc/internal/qc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Check options: operational defaults, optionally overridden from a YAML
	// file (QC_OPTIONS_FILE).
	options := qc.DefaultOptions()
	if cfg.QCOptionsFile != "" {
		options, err = qc.LoadOptions(cfg.QCOptionsFile)
		if err != nil {
			logger.Error("failed to load check options", "path", cfg.QCOptionsFile, "error", err)
			os.Exit(1)
		}
		logger.Info("check options loaded", "path", cfg.QCOptionsFile)
	}

	check := qc.NewInterpolationCheck(options, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(check, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start QC pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
