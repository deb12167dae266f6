package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/flagforge/ctfmanager/pkg/config"
	"github.com/flagforge/ctfmanager/pkg/gateway"
	"github.com/flagforge/ctfmanager/pkg/log"
	"github.com/flagforge/ctfmanager/pkg/metrics"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ctfmanager-gateway",
	Short:   "Runs the flagforge SSH reverse proxy gateway",
	Version: Version,
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", true, "output logs as JSON")
}

func run(cmd *cobra.Command, _ []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
	logger := log.WithComponent("gateway-cmd")

	cfg, err := config.LoadGateway()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hostKey, err := gateway.LoadOrGenerateHostKey(cfg.PrivateKeyFile)
	if err != nil {
		return fmt.Errorf("load host key: %w", err)
	}

	source := gateway.NewHTTPGatewaySource(cfg.ClusterAPIURL, cfg.ClusterAPIToken, nil)
	resolver := gateway.NewHTTPServiceResolver(cfg.ClusterAPIURL, cfg.ClusterAPIToken, nil)
	registry := gateway.NewBackendRegistry()

	controller := gateway.NewController(source, resolver, registry, 0)
	controller.Start()
	defer controller.Stop()

	server := gateway.NewServer(hostKey, registry, nil)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("SSH gateway listening")
		if err := server.ListenAndServe(cfg.ListenAddr); err != nil {
			errCh <- fmt.Errorf("SSH gateway: %w", err)
		}
	}()

	metrics.SetVersion(Version + "+" + Commit)
	metrics.RegisterComponent("gateway", true, "serving")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
