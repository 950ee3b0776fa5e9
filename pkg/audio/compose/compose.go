// Package compose joins two canonical recordings into one stream separated
// by digital silence, so a single diarization pass sees both.
package compose

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/biovault/verify/pkg/audio/pcm"
	"github.com/biovault/verify/pkg/media"
)

// DefaultGap is the silence inserted between the two recordings.
const DefaultGap = 3 * time.Second

// Stream is a composed recording: A, then Gap of silence, then B.
type Stream struct {
	media.Artifact
	A   time.Duration
	Gap time.Duration
	B   time.Duration
}

// Duration returns the total length of the stream.
func (s Stream) Duration() time.Duration {
	return s.A + s.Gap + s.B
}

// Composer writes composed streams.
type Composer struct {
	logger *slog.Logger
}

// New creates a Composer. A nil logger uses slog.Default().
func New(logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{logger: logger}
}

// Compose writes a new owned artifact in scope holding a, gap of silence,
// and b. Both inputs must be canonical WAV; their samples are copied
// unchanged. Input errors are *media.CodecError.
func (c *Composer) Compose(ctx context.Context, scope *media.Scope, a, b media.Artifact, gap time.Duration) (Stream, error) {
	if gap < 0 {
		return Stream{}, fmt.Errorf("compose: negative gap %v", gap)
	}
	if err := ctx.Err(); err != nil {
		return Stream{}, err
	}
	dataA, err := readCanonical(a.Path)
	if err != nil {
		return Stream{}, &media.CodecError{Path: a.Path, Err: err}
	}
	dataB, err := readCanonical(b.Path)
	if err != nil {
		return Stream{}, &media.CodecError{Path: b.Path, Err: err}
	}

	f, out, err := scope.Create(media.KindAudio, "wav")
	if err != nil {
		return Stream{}, err
	}
	w := bufio.NewWriter(f)
	err = pcm.WriteWAV(w, pcm.Canonical,
		pcm.Canonical.DataChunk(dataA),
		pcm.Canonical.SilenceChunk(gap),
		pcm.Canonical.DataChunk(dataB),
	)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Stream{}, fmt.Errorf("compose: write %s: %w", out.Path, err)
	}

	s := Stream{
		Artifact: out,
		A:        pcm.Canonical.Duration(int64(len(dataA))),
		Gap:      gap,
		B:        pcm.Canonical.Duration(int64(len(dataB))),
	}
	c.logger.Debug("compose: done", "path", out.Path, "a", s.A, "gap", s.Gap, "b", s.B)
	return s, nil
}

var errNotCanonical = errors.New("compose: input is not canonical audio")

func readCanonical(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, data, err := pcm.DecodeWAV(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	if format, ok := info.Format(); !ok || format != pcm.Canonical {
		return nil, errNotCanonical
	}
	return data, nil
}
