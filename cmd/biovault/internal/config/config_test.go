package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biovault.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Audio.SilenceGap != 3*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  max_concurrent: 2
audio:
  silence_gap: 1500ms
backend:
  kind: http
  base_url: http://recognizer:9000
voiceprint:
  similarity: 0.8
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.MaxConcurrent != 2 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 2*time.Minute {
		t.Errorf("request_timeout = %v, want default 2m", cfg.Server.RequestTimeout)
	}
	if cfg.Audio.SilenceGap != 1500*time.Millisecond {
		t.Errorf("silence_gap = %v", cfg.Audio.SilenceGap)
	}
	if cfg.Audio.FFmpegPath != "ffmpeg" {
		t.Errorf("ffmpeg_path = %q, want default", cfg.Audio.FFmpegPath)
	}
	if cfg.Voiceprint.Similarity != 0.8 || cfg.Voiceprint.Window != 1500*time.Millisecond {
		t.Errorf("voiceprint = %+v", cfg.Voiceprint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "server:\n  adress: \":9090\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.Backend.APIKey = "from-file"
	env := map[string]string{
		"BIOVAULT_BACKEND_API_KEY": "from-env",
		"BIOVAULT_S3_SECRET_KEY":   "s3-secret",
	}
	cfg.applyEnv(func(k string) string { return env[k] })
	if cfg.Backend.APIKey != "from-env" || cfg.S3.SecretKey != "s3-secret" {
		t.Errorf("backend=%q s3=%q", cfg.Backend.APIKey, cfg.S3.SecretKey)
	}
	if cfg.S3.AccessKey != "" {
		t.Errorf("access key = %q, want unset", cfg.S3.AccessKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"http without url", func(c *Config) { c.Backend.Kind = BackendHTTP }, "backend.base_url"},
		{"unknown backend", func(c *Config) { c.Backend.Kind = "grpc" }, "backend.kind"},
		{"bad url", func(c *Config) { c.Backend.BaseURL = "recognizer:9000" }, "http(s) URL"},
		{"bad metric", func(c *Config) { c.Face.Metric = "manhattan" }, "face.metric"},
		{"zero concurrency", func(c *Config) { c.Server.MaxConcurrent = 0 }, "max_concurrent"},
		{"negative gap", func(c *Config) { c.Audio.SilenceGap = -time.Second }, "silence_gap"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateReportsAll(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = ""
	cfg.Fetch.MaxBytes = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.addr", "fetch.max_bytes"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.Backend.APIKey = "secret"
	cfg.S3.SecretKey = "s3"
	r := cfg.Redacted()
	if r.Backend.APIKey == "secret" || r.S3.SecretKey == "s3" {
		t.Error("secrets not masked")
	}
	if r.S3.AccessKey != "" {
		t.Error("empty secret should stay empty")
	}
	if cfg.Backend.APIKey != "secret" {
		t.Error("Redacted modified the original")
	}
}

func TestSlogLevel(t *testing.T) {
	for _, in := range []string{"debug", "INFO", "warn", "error"} {
		if _, err := (Log{Level: in}).SlogLevel(); err != nil {
			t.Errorf("SlogLevel(%q) = %v", in, err)
		}
	}
}
