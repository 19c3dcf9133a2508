package main

import (
	"context"
	"fmt"

	"github.com/tournevent/parcelbridge/internal/config"
	"github.com/tournevent/parcelbridge/internal/telemetry"
	"github.com/tournevent/parcelbridge/pkg/courier/dpd"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load(".env")
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), func(context.Context) error { return nil }, nil
	}

	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

// initCourier builds the base DPD workflow. With DPD_DEBUG set, requests of
// failed gateway calls are appended to daily files under DPD_LOG_PATH.
func initCourier(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) (*dpd.Client, func() error, error) {
	client, err := dpd.New(cfg.DPD(), logger, tracer)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() error { return nil }
	if cfg.DPDDebug {
		diag, err := telemetry.NewDiagnosticLog(cfg.DPDLogPath, cfg.DPDTimezone)
		if err != nil {
			return nil, nil, fmt.Errorf("opening diagnostic log: %w", err)
		}
		client.SetDiagnostics(diag)
		closeFn = diag.Close
		logger.Info("DPD diagnostics enabled", zap.String("dir", cfg.DPDLogPath))
	}

	return client, closeFn, nil
}
