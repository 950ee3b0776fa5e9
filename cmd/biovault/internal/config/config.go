// Package config loads the biovault configuration file.
//
// The file is YAML. Every key is optional; missing keys keep the values
// from Default:
//
//	server:
//	  addr: ":8080"
//	  request_timeout: 2m
//	  max_concurrent: 8
//	storage:
//	  transient_dir: /var/tmp/biovault
//	backend:
//	  kind: http
//	  base_url: http://recognizer:9000
//
// Secrets may instead be supplied through BIOVAULT_BACKEND_API_KEY,
// BIOVAULT_S3_ACCESS_KEY and BIOVAULT_S3_SECRET_KEY, which take precedence
// over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/biovault/verify/pkg/voiceprint"
)

// Backend kinds.
const (
	BackendHTTP  = "http"
	BackendLocal = "local"
)

// Config is the complete service configuration.
type Config struct {
	Server     Server            `yaml:"server"`
	Storage    Storage           `yaml:"storage"`
	Fetch      Fetch             `yaml:"fetch"`
	Audio      Audio             `yaml:"audio"`
	Face       Face              `yaml:"face"`
	Backend    Backend           `yaml:"backend"`
	Voiceprint voiceprint.Config `yaml:"voiceprint"`
	S3         S3                `yaml:"s3"`
	Log        Log               `yaml:"log"`
}

// Server configures the HTTP front end.
type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
	AllowLocalPaths bool          `yaml:"allow_local_paths"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
}

// Storage configures the transient file directory.
type Storage struct {
	TransientDir string `yaml:"transient_dir"`

	// SweepAfter is the age past which files left by a previous process
	// are removed at startup. Zero removes all of them.
	SweepAfter time.Duration `yaml:"sweep_after"`
}

// Fetch configures media downloads.
type Fetch struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// Audio configures voice preprocessing.
type Audio struct {
	FFmpegPath string        `yaml:"ffmpeg_path"`
	SilenceGap time.Duration `yaml:"silence_gap"`
}

// Face configures face matching.
type Face struct {
	Threshold float64 `yaml:"threshold"`
	Metric    string  `yaml:"metric"`
	MaxSide   int     `yaml:"max_side"`
}

// Backend selects the recognition backend. With kind "local" diarization
// runs in process and faces are detected by the HTTP service only when
// base_url is set.
type Backend struct {
	Kind    string        `yaml:"kind"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// S3 configures access to s3:// references.
type S3 struct {
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:           ":8080",
			RequestTimeout: 2 * time.Minute,
			MaxConcurrent:  8,
			ShutdownGrace:  10 * time.Second,
		},
		Storage: Storage{
			TransientDir: filepath.Join(os.TempDir(), "biovault"),
			SweepAfter:   time.Hour,
		},
		Fetch: Fetch{
			Timeout:  30 * time.Second,
			MaxBytes: 32 << 20,
		},
		Audio: Audio{
			FFmpegPath: "ffmpeg",
			SilenceGap: 3 * time.Second,
		},
		Face: Face{
			Threshold: 0.6,
			Metric:    "euclidean",
			MaxSide:   1024,
		},
		Backend: Backend{
			Kind:    BackendLocal,
			Timeout: 60 * time.Second,
		},
		Voiceprint: voiceprint.DefaultConfig(),
		S3: S3{
			Region: "us-east-1",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration at path over the defaults and applies
// environment overrides. An empty path yields the defaults. Unknown keys
// are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("BIOVAULT_BACKEND_API_KEY"); v != "" {
		c.Backend.APIKey = v
	}
	if v := getenv("BIOVAULT_S3_ACCESS_KEY"); v != "" {
		c.S3.AccessKey = v
	}
	if v := getenv("BIOVAULT_S3_SECRET_KEY"); v != "" {
		c.S3.SecretKey = v
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Addr != "", "server.addr is required")
	check(c.Server.RequestTimeout > 0, "server.request_timeout must be positive")
	check(c.Server.MaxConcurrent > 0, "server.max_concurrent must be positive")
	check(c.Storage.TransientDir != "", "storage.transient_dir is required")
	check(c.Storage.SweepAfter >= 0, "storage.sweep_after must not be negative")
	check(c.Fetch.Timeout > 0, "fetch.timeout must be positive")
	check(c.Fetch.MaxBytes > 0, "fetch.max_bytes must be positive")
	check(c.Audio.SilenceGap >= 0, "audio.silence_gap must not be negative")
	check(c.Face.Threshold > 0, "face.threshold must be positive")
	check(c.Face.Metric == "euclidean" || c.Face.Metric == "cosine",
		"face.metric must be euclidean or cosine, got %q", c.Face.Metric)
	check(c.Face.MaxSide > 0, "face.max_side must be positive")

	switch c.Backend.Kind {
	case BackendHTTP:
		check(c.Backend.BaseURL != "", "backend.base_url is required for kind %q", BackendHTTP)
	case BackendLocal:
	default:
		errs = append(errs, fmt.Errorf("backend.kind must be %q or %q, got %q", BackendHTTP, BackendLocal, c.Backend.Kind))
	}
	if c.Backend.BaseURL != "" {
		check(strings.HasPrefix(c.Backend.BaseURL, "http://") || strings.HasPrefix(c.Backend.BaseURL, "https://"),
			"backend.base_url must be an http(s) URL")
	}

	_, err := c.Log.SlogLevel()
	check(err == nil, "log.level: %v", err)
	check(c.Log.Format == "text" || c.Log.Format == "json",
		"log.format must be text or json, got %q", c.Log.Format)

	return errors.Join(errs...)
}

// SlogLevel parses the configured log level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return level, nil
}

// Redacted returns a copy safe to print, with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	out.Backend.APIKey = mask(c.Backend.APIKey)
	out.S3.AccessKey = mask(c.S3.AccessKey)
	out.S3.SecretKey = mask(c.S3.SecretKey)
	return &out
}
