package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/biovault/verify/pkg/cli"
	"github.com/biovault/verify/pkg/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP verification service",
	Long: `Run the HTTP verification service.

On startup the transient directory is swept of files older than
storage.sweep_after, the ffmpeg binary (audio.ffmpeg_path) is looked up and,
when a remote backend is configured, its health endpoint is checked. A
missing ffmpeg or a failing health check aborts startup.

Routes:
  POST /api/biometric/photo
  POST /api/biometric/voice
  POST /api/biometric/face/detect
  GET  /healthz`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Server.Addr = flagAddr
	}
	logger := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(cfg, logger, cfg.Server.AllowLocalPaths)
	if err != nil {
		return err
	}

	n, err := a.dir.Sweep(cfg.Storage.SweepAfter)
	if err != nil {
		logger.Warn("sweep of transient dir incomplete", "dir", a.dir.Root(), "error", err)
	}
	logger.Info("transient dir ready", "dir", a.dir.Root(), "swept", n)

	if err := a.normalizer.CheckFFmpeg(); err != nil {
		return fmt.Errorf("audio.ffmpeg_path %q: %w", cfg.Audio.FFmpegPath, err)
	}

	if a.ready != nil {
		hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := a.ready(hctx)
		cancel()
		if err != nil {
			return fmt.Errorf("backend health check failed: %w", err)
		}
		logger.Info("backend healthy", "url", cfg.Backend.BaseURL)
	}

	logger.Info("starting biovault",
		"backend", cfg.Backend.Kind,
		"max_concurrent", cfg.Server.MaxConcurrent,
		"max_download", cli.FormatBytes(cfg.Fetch.MaxBytes),
		"allow_local_paths", cfg.Server.AllowLocalPaths,
	)
	srv := server.New(a.pipeline,
		server.WithLogger(logger),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
		server.WithMaxConcurrent(cfg.Server.MaxConcurrent),
		server.WithLocalRefs(cfg.Server.AllowLocalPaths),
		server.WithReadiness(a.ready),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownGrace)
}
