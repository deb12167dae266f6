package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/flagforge/ctfmanager/api/proto"
	"github.com/flagforge/ctfmanager/pkg/cluster"
	"github.com/flagforge/ctfmanager/pkg/config"
	"github.com/flagforge/ctfmanager/pkg/gitsync"
	"github.com/flagforge/ctfmanager/pkg/grpcapi"
	"github.com/flagforge/ctfmanager/pkg/instance"
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
	Use:     "ctfmanager-manager",
	Short:   "Runs the flagforge challenge manager gRPC service",
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
	logger := log.WithComponent("manager")

	cfg, err := config.LoadManager()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info().Str("git_url", cfg.GitURL).Str("branch", cfg.GitBranch).Msg("syncing challenge repository")
	if err := gitsync.Sync(cfg.RepoDir, cfg.GitURL, cfg.GitBranch); err != nil {
		return fmt.Errorf("initial repository sync: %w", err)
	}
	if head, err := gitsync.HeadInfo(cfg.RepoDir); err == nil {
		logger.Info().Str("commit", head.Hash).Msg("repository synced")
	}

	applier := cluster.NewHTTPApplier(cfg.ClusterAPIURL, cfg.ClusterAPIToken, nil)
	store := instance.NewHTTPNamespaceStore(cfg.ClusterAPIURL, cfg.ClusterAPIToken, nil)
	instances := instance.NewManager(store)

	svc := grpcapi.NewService(grpcapi.Config{
		RepoDir:                       cfg.RepoDir,
		GitURL:                        cfg.GitURL,
		GitBranch:                     cfg.GitBranch,
		ExposedDomain:                 cfg.ExposedDomain,
		HMACSecretKey:                 []byte(cfg.HMACSecretKey),
		InsecureForceDisableDNSChecks: cfg.InsecureForceDisableDNSChecks,
		Applier:                       applier,
		Instances:                     instances,
	})

	grpcServer := grpc.NewServer(
		grpc.ForceServerCodec(proto.Codec{}),
		grpc.UnaryInterceptor(grpcapi.UnaryStatusInterceptor),
	)
	grpcapi.Register(grpcServer, svc)

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	metrics.SetVersion(Version + "+" + Commit)
	metrics.RegisterComponent("gitsync", true, "synced")
	metrics.RegisterComponent("grpcapi", true, "serving")

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

	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
