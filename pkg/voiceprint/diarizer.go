package voiceprint

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/biovault/verify/pkg/audio/pcm"
	"github.com/biovault/verify/pkg/diarize"
)

// Config tunes the diarizer.
type Config struct {
	// Window is the length of audio embedded at a time.
	Window time.Duration `yaml:"window"`

	// Hop is the distance between window starts. Each window owns the
	// first Hop of its span when segments are built.
	Hop time.Duration `yaml:"hop"`

	// Similarity is the minimum cosine similarity for a window to join an
	// existing speaker cluster.
	Similarity float64 `yaml:"similarity"`

	// EnergyThreshold is the level in dBFS below which a 10ms block is
	// treated as silence.
	EnergyThreshold float64 `yaml:"energy_threshold"`

	// MinVoiced is the fraction of voiced blocks a window needs to be
	// embedded.
	MinVoiced float64 `yaml:"min_voiced"`
}

// DefaultConfig returns the default diarizer configuration.
func DefaultConfig() Config {
	return Config{
		Window:          1500 * time.Millisecond,
		Hop:             750 * time.Millisecond,
		Similarity:      0.75,
		EnergyThreshold: -45,
		MinVoiced:       0.5,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.Hop <= 0 || c.Hop > c.Window {
		c.Hop = min(def.Hop, c.Window)
	}
	if c.Similarity <= 0 || c.Similarity > 1 {
		c.Similarity = def.Similarity
	}
	if c.EnergyThreshold == 0 {
		c.EnergyThreshold = def.EnergyThreshold
	}
	if c.MinVoiced <= 0 || c.MinVoiced > 1 {
		c.MinVoiced = def.MinVoiced
	}
	return c
}

const (
	blockSamples = 160                    // 10ms at 16kHz
	minWindow    = 400 * time.Millisecond // shorter tails are ignored
)

// Diarizer is a diarize.Diarizer backed by a speaker embedding Model.
type Diarizer struct {
	model  Model
	cfg    Config
	logger *slog.Logger
}

// NewDiarizer creates a Diarizer. Zero config fields take their defaults;
// a nil logger uses slog.Default().
func NewDiarizer(model Model, cfg Config, logger *slog.Logger) *Diarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diarizer{model: model, cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective configuration.
func (d *Diarizer) Config() Config {
	return d.cfg
}

// ErrNotCanonical is returned for input that is not canonical WAV.
var ErrNotCanonical = errors.New("voiceprint: audio is not 16kHz mono PCM16")

// Diarize implements diarize.Diarizer for a canonical WAV file.
func (d *Diarizer) Diarize(ctx context.Context, path string) ([]diarize.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	info, data, err := pcm.DecodeWAV(bufio.NewReader(f))
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %s: %w", path, err)
	}
	if format, ok := info.Format(); !ok || format != pcm.Canonical {
		return nil, fmt.Errorf("%w: %s", ErrNotCanonical, path)
	}
	return d.DiarizePCM(ctx, data)
}

// window is one analysis window. [start, core) is the span it owns.
type window struct {
	start, core, end int64 // byte offsets
	voiced           []byte
	emb              []float32
	label            int
	sim              float64
}

// DiarizePCM segments canonical PCM16 samples by speaker.
func (d *Diarizer) DiarizePCM(ctx context.Context, audio []byte) ([]diarize.Segment, error) {
	windows := d.windows(audio)
	if len(windows) == 0 {
		return nil, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range windows {
		w := &windows[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			emb, err := d.model.Extract(w.voiced)
			if err != nil {
				return fmt.Errorf("voiceprint: window at %v: %w", pcm.Canonical.Duration(w.start), err)
			}
			w.emb = emb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	clusters := d.cluster(windows)
	segs := merge(windows)
	d.logger.Debug("voiceprint: diarized",
		"duration", pcm.Canonical.Duration(int64(len(audio))),
		"windows", len(windows),
		"speakers", clusters,
		"segments", len(segs),
	)
	return segs, nil
}

// windows slices audio into voiced analysis windows.
func (d *Diarizer) windows(audio []byte) []window {
	f := pcm.Canonical
	total := int64(len(audio)) / int64(f.BlockAlign()) * int64(f.BlockAlign())
	winBytes := f.BytesInDuration(d.cfg.Window)
	hopBytes := f.BytesInDuration(d.cfg.Hop)
	minBytes := f.BytesInDuration(minWindow)

	var out []window
	for start := int64(0); start < total; start += hopBytes {
		end := min(start+winBytes, total)
		if end-start < minBytes {
			break
		}
		core := min(start+hopBytes, end)
		if end == total {
			core = end
		}
		if voiced := d.voiced(audio[start:end]); voiced != nil {
			out = append(out, window{start: start, core: core, end: end, voiced: voiced})
		}
		if end == total {
			break
		}
	}
	return out
}

// voiced returns the concatenated blocks of pcm above the energy gate, or
// nil when too few blocks are voiced.
func (d *Diarizer) voiced(pcm16 []byte) []byte {
	const blockBytes = blockSamples * 2
	n := len(pcm16) / blockBytes
	if n == 0 {
		return nil
	}
	out := make([]byte, 0, len(pcm16))
	count := 0
	for i := 0; i < n; i++ {
		block := pcm16[i*blockBytes : (i+1)*blockBytes]
		if levelDBFS(block) >= d.cfg.EnergyThreshold {
			out = append(out, block...)
			count++
		}
	}
	if float64(count)/float64(n) < d.cfg.MinVoiced {
		return nil
	}
	return out
}

// levelDBFS returns the RMS level of PCM16 audio relative to full scale.
func levelDBFS(pcm16 []byte) float64 {
	var sum float64
	n := len(pcm16) / 2
	for i := 0; i < n; i++ {
		s := float64(int16(pcm16[2*i]) | int16(pcm16[2*i+1])<<8)
		sum += s * s
	}
	if sum == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(math.Sqrt(sum/float64(n))/32768)
}

// cluster assigns a label to every window in time order and returns the
// number of clusters. A window joins the most similar cluster if the
// similarity reaches the threshold, otherwise it starts a new one.
func (d *Diarizer) cluster(windows []window) int {
	var centroids [][]float32
	for i := range windows {
		w := &windows[i]
		best, bestSim := -1, -1.0
		for c, centroid := range centroids {
			if sim := CosineSimilarity(w.emb, centroid); sim > bestSim {
				best, bestSim = c, sim
			}
		}
		if best >= 0 && bestSim >= d.cfg.Similarity {
			w.label, w.sim = best, bestSim
			for j, x := range w.emb {
				centroids[best][j] += x
			}
			continue
		}
		centroid := make([]float32, len(w.emb))
		copy(centroid, w.emb)
		centroids = append(centroids, centroid)
		w.label, w.sim = len(centroids)-1, 1
	}
	return len(centroids)
}

// merge joins adjacent windows with the same label into segments. Windows
// separated by dropped silence always start a new segment. Segment
// confidence is the mean similarity of its windows to their cluster.
func merge(windows []window) []diarize.Segment {
	f := pcm.Canonical
	var (
		segs  []diarize.Segment
		count int
	)
	for i, w := range windows {
		if i > 0 && w.label == windows[i-1].label && w.start == windows[i-1].core {
			last := &segs[len(segs)-1]
			last.End = f.Duration(w.core)
			last.Confidence = (last.Confidence*float64(count) + w.sim) / float64(count+1)
			count++
			continue
		}
		segs = append(segs, diarize.Segment{
			Start:      f.Duration(w.start),
			End:        f.Duration(w.core),
			Speaker:    SpeakerLabel(w.label),
			Confidence: w.sim,
		})
		count = 1
	}
	return segs
}

var _ diarize.Diarizer = (*Diarizer)(nil)
