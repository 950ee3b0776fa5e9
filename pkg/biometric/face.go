package biometric

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/biovault/verify/pkg/backend"
	"github.com/biovault/verify/pkg/imaging"
	"github.com/biovault/verify/pkg/media"
)

// FaceDetector finds faces and their embeddings in an image file.
// *backend.Client implements it.
type FaceDetector interface {
	DetectFaces(ctx context.Context, path string) ([]backend.Face, error)
}

// Metric is a face embedding distance.
type Metric string

const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
)

// DefaultFaceThreshold is the euclidean distance below which two faces
// match.
const DefaultFaceThreshold = 0.6

// FaceConfig tunes face matching.
type FaceConfig struct {
	Threshold float64
	Metric    Metric
}

// FaceMatch verifies two face images by embedding distance.
type FaceMatch struct {
	detector FaceDetector
	images   *imaging.Canonicalizer
	cfg      FaceConfig
	logger   *slog.Logger
}

// NewFaceMatch creates a FaceMatch. A zero threshold uses
// DefaultFaceThreshold, an empty metric MetricEuclidean. A nil detector
// makes every verification fail with a backend error.
func NewFaceMatch(detector FaceDetector, images *imaging.Canonicalizer, cfg FaceConfig, logger *slog.Logger) *FaceMatch {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultFaceThreshold
	}
	if cfg.Metric == "" {
		cfg.Metric = MetricEuclidean
	}
	if images == nil {
		images = imaging.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FaceMatch{detector: detector, images: images, cfg: cfg, logger: logger}
}

// Modality implements Strategy.
func (m *FaceMatch) Modality() Modality { return ModalityFace }

// Prepare decodes both images and rewrites them as bounded PNG.
func (m *FaceMatch) Prepare(ctx context.Context, scope *media.Scope, a, b media.Artifact) (Input, error) {
	pa, err := m.images.Canonicalize(ctx, scope, a)
	if err != nil {
		return Input{}, err
	}
	pb, err := m.images.Canonicalize(ctx, scope, b)
	if err != nil {
		return Input{}, err
	}
	return Input{A: pa, B: pb}, nil
}

// Verify implements Strategy.
func (m *FaceMatch) Verify(ctx context.Context, in Input) Verdict {
	logger := LoggerFrom(ctx, m.logger)
	return guard(logger, func() Verdict {
		v, err := m.verify(ctx, in)
		if err != nil {
			return fail(logger, err, StageVerifying)
		}
		return v
	})
}

func (m *FaceMatch) verify(ctx context.Context, in Input) (Verdict, error) {
	if m.detector == nil {
		return Verdict{}, ErrNoDetector
	}
	var faces [2][]backend.Face
	g, gctx := errgroup.WithContext(ctx)
	for i, art := range []media.Artifact{in.A, in.B} {
		g.Go(func() error {
			found, err := m.detect(gctx, art.Path)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return fmt.Errorf("%w in image %d", ErrNoFaceDetected, i+1)
			}
			faces[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Verdict{}, err
	}

	fa, fb := bestFace(faces[0]), bestFace(faces[1])
	d, err := m.distance(fa.Embedding, fb.Embedding)
	if err != nil {
		return Verdict{}, err
	}
	LoggerFrom(ctx, m.logger).Debug("biometric: face distance", "metric", m.cfg.Metric, "distance", d, "threshold", m.cfg.Threshold)
	return Verdict{
		Verified:   d < m.cfg.Threshold,
		Confidence: ptr(clamp01(1 - d)),
		Distance:   ptr(d),
		Threshold:  ptr(m.cfg.Threshold),
		Detail:     string(m.cfg.Metric),
	}, nil
}

// detect calls the detector, turning a panic into an error so it cannot
// escape the errgroup goroutine.
func (m *FaceMatch) detect(ctx context.Context, path string) (faces []backend.Face, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("biometric: face detector panicked: %v", r)
		}
	}()
	return m.detector.DetectFaces(ctx, path)
}

// bestFace returns the face with the highest detection score.
func bestFace(faces []backend.Face) backend.Face {
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}
	return best
}

func (m *FaceMatch) distance(a, b []float64) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, fmt.Errorf("biometric: embedding dimensions differ (%d, %d)", len(a), len(b))
	}
	switch m.cfg.Metric {
	case MetricCosine:
		var dot, na, nb float64
		for i := range a {
			dot += a[i] * b[i]
			na += a[i] * a[i]
			nb += b[i] * b[i]
		}
		if na == 0 || nb == 0 {
			return 1, nil
		}
		return 1 - dot/math.Sqrt(na*nb), nil
	default:
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum), nil
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
