package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/voxsentry/voxsentry/internal/core/engine"
	"github.com/voxsentry/voxsentry/internal/core/store"
	errwrap "github.com/voxsentry/voxsentry/internal/errors"
	"github.com/voxsentry/voxsentry/internal/observability"
	"github.com/voxsentry/voxsentry/internal/server"
	"github.com/voxsentry/voxsentry/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// storeHealthChecker pings the run history database
type storeHealthChecker struct {
	db *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.db == nil || s.db.DB == nil {
		return errwrap.NewDatabaseError("store not initialized")
	}
	if err := s.db.DB.PingContext(ctx); err != nil {
		return errwrap.NewDatabaseError("store ping failed: " + err.Error())
	}
	return nil
}

// breakerHealthChecker reports not-ready while the circuit breaker is open,
// so load balancers stop routing work the process would only reject.
type breakerHealthChecker struct {
	breaker *engine.Breaker
}

func (b breakerHealthChecker) CheckHealth(ctx context.Context) error {
	if b.breaker == nil {
		return errwrap.NewInternalError("breaker not initialized")
	}
	if b.breaker.State() == engine.BreakerOpen {
		return errwrap.NewServiceUnavailableError("circuit breaker is open")
	}
	return nil
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP monitor server",
	Long: `Start the HTTP monitor server with graceful shutdown support.

The server exposes health probes, version info, Prometheus metrics and a
JSON snapshot of the resilience state (breaker, limiter, request counters).

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// Initialize server logger
		logLevel := viper.GetString("logging.level")
		if err := observability.InitServerLogger(appName, logLevel); err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
		}

		metricsPort := cfg.Metrics.Port
		if metricsPort == 0 {
			metricsPort = 9090
		}

		// Initialize metrics
		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(appName, metricsPort); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("host", serverHost),
			zap.Int("port", serverPort),
			zap.Int("metrics_port", metricsPort))

		// Build the shared resilience components so the monitor endpoints
		// reflect live breaker and limiter state.
		pipe, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		handlers.SetStatsSource(&handlers.StatsSource{
			Collector: pipe.Collector,
			Breaker:   pipe.Breaker,
			Limiter:   pipe.Limiter,
		})

		// Open the run history store for readiness checks
		db, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store initialization failed")
		}

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("store", storeHealthChecker{db: db})
		hm.RegisterChecker("circuit_breaker", breakerHealthChecker{breaker: pipe.Breaker})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		// Create server
		srv := server.New(serverHost, serverPort)

		// Get shutdown timeout from config
		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close the store
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing store...")
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Store close returned error", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Register config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: attempting config reload")

			// Attempt to reload configuration
			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					observability.ServerLogger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				observability.ServerLogger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}

			observability.ServerLogger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// Running components keep their settings; restart to apply
			// resilience or server changes.

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", serverHost),
				zap.Int("port", serverPort))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "127.0.0.1", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
