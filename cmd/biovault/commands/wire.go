package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/biovault/verify/cmd/biovault/internal/config"
	"github.com/biovault/verify/pkg/audio/compose"
	"github.com/biovault/verify/pkg/audio/normalize"
	"github.com/biovault/verify/pkg/backend"
	"github.com/biovault/verify/pkg/biometric"
	"github.com/biovault/verify/pkg/diarize"
	"github.com/biovault/verify/pkg/imaging"
	"github.com/biovault/verify/pkg/media"
	"github.com/biovault/verify/pkg/storage"
	"github.com/biovault/verify/pkg/voiceprint"
)

// app holds the components built from a configuration.
type app struct {
	dir        *storage.Local
	pipeline   *biometric.Pipeline
	normalizer *normalize.Normalizer

	// ready checks the remote backend, if one is configured.
	ready func(context.Context) error
}

// buildApp constructs every backend once; they are shared by all requests.
// allowLocal overrides server.allow_local_paths for the one-shot CLI.
func buildApp(cfg *config.Config, logger *slog.Logger, allowLocal bool) (*app, error) {
	dir, err := storage.NewLocal(cfg.Storage.TransientDir)
	if err != nil {
		return nil, fmt.Errorf("transient dir: %w", err)
	}

	s3c := storage.NewS3Client(storage.S3Config{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		PathStyle: cfg.S3.PathStyle,
	}, nil)
	fetcher := media.NewFetcher(
		media.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		media.WithS3Client(s3c),
		media.WithMaxBytes(cfg.Fetch.MaxBytes),
		media.WithLocalPaths(allowLocal),
		media.WithLogger(logger),
	)

	a := &app{dir: dir}
	var (
		faces    biometric.FaceDetector
		diarizer diarize.Diarizer
	)
	if cfg.Backend.BaseURL != "" {
		client := backend.NewClient(cfg.Backend.BaseURL,
			backend.WithAPIKey(cfg.Backend.APIKey),
			backend.WithTimeout(cfg.Backend.Timeout),
		)
		faces = client
		diarizer = client
		a.ready = client.Health
	}
	if cfg.Backend.Kind == config.BackendLocal {
		model := voiceprint.NewStatsModel(voiceprint.DefaultFbankConfig())
		diarizer = voiceprint.NewDiarizer(model, cfg.Voiceprint, logger)
	}
	if faces == nil {
		logger.Warn("no face backend configured; face verification will fail", "backend", cfg.Backend.Kind)
	}

	face := biometric.NewFaceMatch(faces, imaging.New(cfg.Face.MaxSide), biometric.FaceConfig{
		Threshold: cfg.Face.Threshold,
		Metric:    biometric.Metric(cfg.Face.Metric),
	}, logger)
	a.normalizer = normalize.New(normalize.WithFFmpeg(cfg.Audio.FFmpegPath), normalize.WithLogger(logger))
	voice := biometric.NewVoiceMatch(
		a.normalizer,
		compose.New(logger),
		diarizer,
		cfg.Audio.SilenceGap,
		logger,
	)
	a.pipeline = biometric.NewPipeline(dir, fetcher, face, voice, biometric.WithLogger(logger))
	return a, nil
}
