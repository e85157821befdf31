package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/johnyburd/autbot/internal/control"
	"github.com/johnyburd/autbot/internal/core/config"
	"github.com/johnyburd/autbot/internal/logging"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"
)

var (
	cfgPath   string
	envPrefix string
	isDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "gateway-ingress",
	Short: "Gateway ingress service",
	Long:  `Gateway ingress connects to its downstream gRPC services with a resilient retry policy driven by its configuration.`,
	Run:   runGateway,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", config.DefaultEnvPrefix, "prefix of environment overrides")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env, then the config file with environment overrides.
// A failure is fatal: the process never runs on a partial configuration.
func loadConfig() config.Configuration {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath, config.WithEnvPrefix(envPrefix))
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	return cfg
}

func runGateway(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	logger, closer := logging.Setup(cfg.Logging, isDebug)
	defer func() {
		_ = closer.Close()
	}()
	logger.Info("Logger initialized", "level", cfg.Logging.Level, "config", cfgPath)
	logger.Debug("Configuration loaded",
		"feature_gate", cfg.Services.FeatureGate,
		"logs_uptime", cfg.Services.LogsUptime,
		"initialization_backoff", cfg.InitializationBackoff,
		"rpc_backoff", cfg.RPCBackoff,
	)

	svc, err := control.NewService(cfg, control.Options{Logger: logger})
	if err != nil {
		logger.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		// Abort a startup still waiting on the initialization backoff.
		<-sigChan
		cancel()
	}()

	if err := svc.Start(ctx); err != nil {
		logger.Error("Failed to start service", "error", err)
		stopService(svc)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Received signal, shutting down...")

	if err := stopService(svc); err != nil {
		logger.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}
}

func stopService(svc *control.Service) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return svc.Stop(shutdownCtx)
}
