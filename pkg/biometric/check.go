package biometric

import (
	"context"
	"fmt"

	"github.com/biovault/verify/pkg/media"
)

// FaceCheck reports whether an image contains a detectable face.
type FaceCheck struct {
	FaceDetected bool   `json:"face_detected" yaml:"face_detected"`
	Faces        int    `json:"faces" yaml:"faces"`
	Error        Reason `json:"error,omitempty" yaml:"error,omitempty"`
	Detail       string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// FaceCounter counts the faces in one image. *FaceMatch implements it.
type FaceCounter interface {
	CountFaces(ctx context.Context, scope *media.Scope, img media.Artifact) (int, error)
}

// CountFaces canonicalizes img and returns the number of faces the
// detector finds in it.
func (m *FaceMatch) CountFaces(ctx context.Context, scope *media.Scope, img media.Artifact) (int, error) {
	if m.detector == nil {
		return 0, ErrNoDetector
	}
	canon, err := m.images.Canonicalize(ctx, scope, img)
	if err != nil {
		return 0, err
	}
	faces, err := m.detect(ctx, canon.Path)
	if err != nil {
		return 0, err
	}
	return len(faces), nil
}

// CheckFace fetches ref and counts its faces. Like Verify, failures are
// reported in the result and the error is reserved for requests the
// pipeline cannot serve.
func (p *Pipeline) CheckFace(ctx context.Context, ref media.Reference) (FaceCheck, error) {
	if ref.IsZero() {
		return FaceCheck{}, fmt.Errorf("%w: a media reference is required", ErrInvalidRequest)
	}
	counter, ok := p.face.(FaceCounter)
	if !ok {
		return FaceCheck{}, fmt.Errorf("%w: face detection is not available", ErrInvalidRequest)
	}

	logger := LoggerFrom(ctx, p.logger).With("modality", ModalityFace.String(), "op", "check")
	scope := media.NewScope(p.dir, logger)
	defer scope.Close()

	stage := StageFetching
	failed := func(err error) FaceCheck {
		v := fail(logger, err, stage)
		return FaceCheck{Error: v.Error, Detail: v.Detail}
	}

	art, err := p.fetcher.Fetch(ctx, scope, ref, media.KindImage)
	if err != nil {
		return failed(err), nil
	}
	stage = StageVerifying
	n, err := counter.CountFaces(ctx, scope, art)
	if err != nil {
		return failed(err), nil
	}
	return FaceCheck{FaceDetected: n > 0, Faces: n}, nil
}
