package normalize

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/biovault/verify/pkg/audio/pcm"
	"github.com/biovault/verify/pkg/audio/resampler"
	"github.com/biovault/verify/pkg/media"
)

// ErrNoSamples is wrapped by a CodecError when the input decodes to no audio.
var ErrNoSamples = errors.New("normalize: no audio samples")

// Normalizer converts audio artifacts to canonical WAV.
type Normalizer struct {
	ffmpegPath string
	runner     commandRunner
	logger     *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithFFmpeg sets the ffmpeg binary. The default is "ffmpeg" from PATH.
func WithFFmpeg(path string) Option {
	return func(n *Normalizer) {
		if path != "" {
			n.ffmpegPath = path
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		ffmpegPath: "ffmpeg",
		runner:     execRunner{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CheckFFmpeg reports whether the configured ffmpeg binary can be found.
// Every input that is not PCM WAV needs it.
func (n *Normalizer) CheckFFmpeg() error {
	if _, err := exec.LookPath(n.ffmpegPath); err != nil {
		return fmt.Errorf("normalize: ffmpeg: %w", err)
	}
	return nil
}

// FFmpegArgs returns the ffmpeg arguments that transcode in to canonical
// WAV at out.
func FFmpegArgs(in, out string) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-vn", "-map_metadata", "-1",
		"-fflags", "+bitexact",
		"-flags:a", "+bitexact",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		out,
	}
}

// Normalize converts src to a new owned canonical WAV artifact in scope.
// The input is never modified. Every failure is a *media.CodecError.
func (n *Normalizer) Normalize(ctx context.Context, scope *media.Scope, src media.Artifact) (media.Artifact, error) {
	out, native, err := n.normalize(ctx, scope, src)
	if err != nil {
		return media.Artifact{}, &media.CodecError{Path: src.Path, Err: err}
	}
	if _, err := Validate(out.Path); err != nil {
		return media.Artifact{}, &media.CodecError{Path: src.Path, Err: err}
	}
	n.logger.Debug("normalize: done", "src", src.Path, "dst", out.Path, "native", native)
	return out, nil
}

func (n *Normalizer) normalize(ctx context.Context, scope *media.Scope, src media.Artifact) (media.Artifact, bool, error) {
	in, err := os.Open(src.Path)
	if err != nil {
		return media.Artifact{}, false, err
	}
	info, herr := pcm.ReadWAVHeader(bufio.NewReader(in))
	in.Close()
	if herr == nil && nativeSupported(info) {
		out, err := n.convertWAV(scope, src)
		return out, true, err
	}
	if herr != nil && !errors.Is(herr, pcm.ErrNotWAV) && !errors.Is(herr, pcm.ErrNoDataChunk) {
		return media.Artifact{}, false, herr
	}
	out, err := n.transcode(ctx, scope, src)
	return out, false, err
}

// nativeSupported reports whether a WAV stream can be converted without
// ffmpeg: integer PCM, 8 or 16 bit, mono or stereo.
func nativeSupported(info pcm.WAVInfo) bool {
	return info.IsPCM() &&
		(info.BitsPerSample == 8 || info.BitsPerSample == 16) &&
		(info.Channels == 1 || info.Channels == 2)
}

func (n *Normalizer) convertWAV(scope *media.Scope, src media.Artifact) (media.Artifact, error) {
	in, err := os.Open(src.Path)
	if err != nil {
		return media.Artifact{}, err
	}
	info, data, err := pcm.DecodeWAV(bufio.NewReader(in))
	in.Close()
	if err != nil {
		return media.Artifact{}, err
	}
	if info.BitsPerSample == 8 {
		data = resampler.Widen8(data)
	}
	data, err = resampler.Convert(data,
		resampler.Format{SampleRate: info.SampleRate, Channels: info.Channels},
		resampler.Format{SampleRate: pcm.Canonical.SampleRate(), Channels: pcm.Canonical.Channels()},
	)
	if err != nil {
		return media.Artifact{}, err
	}
	if len(data) == 0 {
		return media.Artifact{}, ErrNoSamples
	}

	f, out, err := scope.Create(media.KindAudio, "wav")
	if err != nil {
		return media.Artifact{}, err
	}
	w := bufio.NewWriter(f)
	err = pcm.WriteWAV(w, pcm.Canonical, pcm.Canonical.DataChunk(data))
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return media.Artifact{}, fmt.Errorf("normalize: write %s: %w", out.Path, err)
	}
	return out, nil
}

func (n *Normalizer) transcode(ctx context.Context, scope *media.Scope, src media.Artifact) (media.Artifact, error) {
	f, out, err := scope.Create(media.KindAudio, "wav")
	if err != nil {
		return media.Artifact{}, err
	}
	f.Close()

	res, err := n.runner.Run(ctx, n.ffmpegPath, FFmpegArgs(src.Path, out.Path)...)
	if err != nil {
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			return media.Artifact{}, fmt.Errorf("normalize: ffmpeg: %w", err)
		}
		return media.Artifact{}, fmt.Errorf("normalize: ffmpeg exit %d: %s: %w", res.ExitCode, msg, err)
	}
	return out, nil
}

// Validate checks that path holds a non-empty canonical WAV and returns its
// description.
func Validate(path string) (pcm.WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.WAVInfo{}, err
	}
	defer f.Close()

	info, err := pcm.ReadWAVHeader(bufio.NewReader(f))
	if err != nil {
		return pcm.WAVInfo{}, fmt.Errorf("normalize: %s: %w", path, err)
	}
	if format, ok := info.Format(); !ok || format != pcm.Canonical {
		return pcm.WAVInfo{}, fmt.Errorf("normalize: %s: not canonical (%d Hz, %d ch, %d bit)",
			path, info.SampleRate, info.Channels, info.BitsPerSample)
	}
	if info.DataSize == 0 {
		return pcm.WAVInfo{}, ErrNoSamples
	}
	if info.DataSize < 0 {
		st, err := f.Stat()
		if err != nil {
			return pcm.WAVInfo{}, err
		}
		// Streaming writers leave the size unset; the data runs to EOF.
		if st.Size() <= pcm.WAVHeaderSize {
			return pcm.WAVInfo{}, ErrNoSamples
		}
	}
	return info, nil
}
