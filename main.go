package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tournevent/parcelbridge/internal/config"
	"github.com/tournevent/parcelbridge/internal/server"
	"github.com/tournevent/parcelbridge/pkg/courier"
	"github.com/tournevent/parcelbridge/pkg/courier/dpd"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "parcelbridge",
	Short:   "DPD Poland shipment workflow GraphQL service",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the GraphQL server",
	RunE:  runServe,
}

var postcodeCmd = &cobra.Command{
	Use:   "postcode <code>",
	Short: "Check that DPD serves a postal code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(cmd, func(ctx context.Context, c *dpd.Client, country string) (any, error) {
			return c.CheckPostCode(ctx, args[0], country)
		})
	},
}

var availabilityCmd = &cobra.Command{
	Use:   "availability <code>",
	Short: "List courier pickup windows for a postal code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(cmd, func(ctx context.Context, c *dpd.Client, country string) (any, error) {
			return c.CheckCourierAvailability(ctx, args[0], country)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{postcodeCmd, availabilityCmd} {
		cmd.Flags().String("country", "PL", "ISO country code of the postal code")
	}
	rootCmd.AddCommand(serveCmd, postcodeCmd, availabilityCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize telemetry
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		tracer = nil
	} else {
		defer tracerShutdown(ctx)
	}

	base, closeDiagnostics, err := initCourier(cfg, logger, tracer)
	if err != nil {
		return err
	}
	defer closeDiagnostics()

	logger.Info("Starting DPD shipment bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Bool("mock", cfg.DPDUseMock),
	)

	registry := courier.NewRegistry()
	registry.Register(base.Name(), func() courier.Courier { return base.Fork() })
	workflows, err := registry.Factory(cfg.Carrier)
	if err != nil {
		return err
	}

	// Start HTTP server
	srv := server.New(server.Config{Port: cfg.Port}, workflows, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

type lookupFunc func(ctx context.Context, c *dpd.Client, country string) (any, error)

func runLookup(cmd *cobra.Command, lookup lookupFunc) error {
	cfg, logger, err := setupCLI()
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, closeDiagnostics, err := initCourier(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeDiagnostics()

	country, _ := cmd.Flags().GetString("country")
	result, err := lookup(cmd.Context(), client, country)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func setupCLI() (*config.Config, *otelzap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
