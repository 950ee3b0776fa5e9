package voiceprint

import (
	"errors"
	"fmt"
	"math"
)

// Model extracts speaker embedding vectors from raw audio.
//
// The input audio must be PCM16 signed little-endian, 16kHz, mono.
// The output is a dense float32 vector whose dimensionality is
// returned by Dimension().
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multiple goroutines
// may call Extract simultaneously.
type Model interface {
	// Extract computes a speaker embedding from raw PCM16 audio.
	Extract(audio []byte) ([]float32, error)

	// Dimension returns the length of the vectors produced by Extract.
	Dimension() int

	// Close releases any resources held by the model.
	Close() error
}

// ErrAudioTooShort is returned by Extract when the audio is shorter than
// one analysis frame.
var ErrAudioTooShort = errors.New("voiceprint: audio too short")

// StatsModel embeds audio as the per-band mean and standard deviation of
// its log mel filterbank, after removing each frame's overall level. The
// result is L2-normalized.
//
// It needs no model weights and is deterministic. It separates speakers
// with clearly different voices; it is not a substitute for a trained
// speaker-verification network.
type StatsModel struct {
	plan *fbankPlan
}

// NewStatsModel creates a StatsModel with the given filterbank
// configuration. Zero fields take their defaults.
func NewStatsModel(cfg FbankConfig) *StatsModel {
	return &StatsModel{plan: newFbankPlan(cfg)}
}

// Extract implements Model.
func (m *StatsModel) Extract(audio []byte) ([]float32, error) {
	frames := m.plan.compute(pcm16ToFloat(audio))
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrAudioTooShort, len(audio))
	}
	mels := m.plan.cfg.NumMels

	sum := make([]float64, mels)
	sumSq := make([]float64, mels)
	for _, frame := range frames {
		var level float64
		for _, v := range frame {
			level += float64(v)
		}
		level /= float64(mels)
		for i, v := range frame {
			x := float64(v) - level
			sum[i] += x
			sumSq[i] += x * x
		}
	}

	n := float64(len(frames))
	emb := make([]float32, 2*mels)
	for i := 0; i < mels; i++ {
		mean := sum[i] / n
		variance := max(sumSq[i]/n-mean*mean, 0)
		emb[i] = float32(mean)
		emb[mels+i] = float32(math.Sqrt(variance))
	}
	normalize(emb)
	return emb, nil
}

// Dimension implements Model.
func (m *StatsModel) Dimension() int {
	return 2 * m.plan.cfg.NumMels
}

// Close implements Model.
func (m *StatsModel) Close() error {
	return nil
}

var _ Model = (*StatsModel)(nil)
