package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/go-jsondb/pkg/config"
	"github.com/adfharrison1/go-jsondb/pkg/logging"
	"github.com/adfharrison1/go-jsondb/pkg/server"
	"github.com/adfharrison1/go-jsondb/pkg/storage"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "0.1.0"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "go-jsondb",
	Short: "Embeddable JSON document store with an append-only log per collection",
	Long: `go-jsondb keeps JSON documents in memory, grouped into collections.
Collections created with a file append every change to a newline-delimited
JSON log and replay it when they are created again.`,
	Example: `  go-jsondb                                 # Start on :7999
  go-jsondb --port 9090 --data-dir /tmp/db  # Custom port and data directory
  go-jsondb --sync-writes                   # fsync every append
  go-jsondb --compaction-interval 10m       # Compact logs every 10 minutes
  go-jsondb backup inspect backup.godb      # Summarize a backup file`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}

	durability := storage.DurabilityOS
	if cfg.SyncWrites {
		durability = storage.DurabilityFull
	}

	registry := storage.NewRegistry(
		storage.WithDataDir(cfg.DataDir),
		storage.WithDurability(durability),
		storage.WithCompactionInterval(cfg.CompactionInterval),
		storage.WithLogger(logger.With().Str("component", "storage").Logger()),
	)

	srv := server.NewServer(registry,
		server.WithLogger(logger.With().Str("component", "http").Logger()),
		server.WithVersion(Version),
		server.WithBackupFile(cfg.BackupFile),
		server.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn().Err(err).Msg("Closing registry")
		}
	}()

	logStartup(logger, cfg, durability)
	srv.StartBackgroundWorkers()

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("Starting go-jsondb server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("Shutting down server...")

		// Give outstanding requests a deadline for completion
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info().Msg("Server exited")
	return nil
}

func logStartup(logger zerolog.Logger, cfg config.Config, durability storage.DurabilityLevel) {
	logger.Info().
		Str("version", Version).
		Str("data_dir", cfg.DataDir).
		Stringer("durability", durability).
		Dur("compaction_interval", cfg.CompactionInterval).
		Msg("Configuration loaded")

	if cfg.CompactionInterval <= 0 {
		logger.Warn().Msg("Background compaction disabled - logs grow until compacted via POST /collections/{coll}/compact")
	}
	if cfg.BackupFile == "" {
		logger.Info().Msg("No backup file configured - POST /admin/backup is disabled")
	}
}
