package biometric

import (
	"context"
	"log/slog"
	"time"

	"github.com/biovault/verify/pkg/audio/compose"
	"github.com/biovault/verify/pkg/diarize"
	"github.com/biovault/verify/pkg/media"
)

// Normalizer converts audio to canonical WAV. *normalize.Normalizer
// implements it.
type Normalizer interface {
	Normalize(ctx context.Context, scope *media.Scope, src media.Artifact) (media.Artifact, error)
}

// Composer joins two canonical recordings with silence.
// *compose.Composer implements it.
type Composer interface {
	Compose(ctx context.Context, scope *media.Scope, a, b media.Artifact, gap time.Duration) (compose.Stream, error)
}

// VoiceMatch verifies two voice clips by diarizing them as one recording.
type VoiceMatch struct {
	normalizer Normalizer
	composer   Composer
	diarizer   diarize.Diarizer
	gap        time.Duration
	logger     *slog.Logger
}

// NewVoiceMatch creates a VoiceMatch. A non-positive gap uses
// compose.DefaultGap.
func NewVoiceMatch(n Normalizer, c Composer, d diarize.Diarizer, gap time.Duration, logger *slog.Logger) *VoiceMatch {
	if gap <= 0 {
		gap = compose.DefaultGap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VoiceMatch{normalizer: n, composer: c, diarizer: d, gap: gap, logger: logger}
}

// Modality implements Strategy.
func (m *VoiceMatch) Modality() Modality { return ModalityVoice }

// Prepare normalizes both clips and composes them around the silence gap.
func (m *VoiceMatch) Prepare(ctx context.Context, scope *media.Scope, a, b media.Artifact) (Input, error) {
	na, err := m.normalizer.Normalize(ctx, scope, a)
	if err != nil {
		return Input{}, err
	}
	nb, err := m.normalizer.Normalize(ctx, scope, b)
	if err != nil {
		return Input{}, err
	}
	s, err := m.composer.Compose(ctx, scope, na, nb, m.gap)
	if err != nil {
		return Input{}, err
	}
	return Input{A: na, B: nb, Stream: &s}, nil
}

// Verify implements Strategy.
func (m *VoiceMatch) Verify(ctx context.Context, in Input) Verdict {
	logger := LoggerFrom(ctx, m.logger)
	return guard(logger, func() Verdict {
		if in.Stream == nil {
			return Failure(ReasonCodec, "no composed stream")
		}
		segs, err := m.diarizer.Diarize(ctx, in.Stream.Path)
		if err != nil {
			return fail(logger, err, StageVerifying)
		}
		v := Aggregate(segs)
		logger.Debug("biometric: voice aggregate",
			"duration", in.Stream.Duration(),
			"segments", len(segs),
			"speakers", *v.SpeakerCount,
			"verified", v.Verified,
		)
		return v
	})
}
