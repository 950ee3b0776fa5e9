package biometric

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biovault/verify/pkg/backend"
	"github.com/biovault/verify/pkg/media"
)

var (
	// ErrNoFaceDetected is returned when an image has no detectable face.
	ErrNoFaceDetected = errors.New("biometric: no face detected")

	// ErrInsufficientSegments describes diarization output with fewer than
	// two segments. It is diagnostic only: Aggregate reports it as a
	// negative verdict without an error reason.
	ErrInsufficientSegments = errors.New("biometric: insufficient segments")

	// ErrNoDetector is returned when face matching has no face detector.
	ErrNoDetector = errors.New("biometric: face detection is not configured")
)

// Classify maps an error to a verdict reason. Typed errors decide first;
// anything else is attributed to the stage it occurred in.
func Classify(err error, stage Stage) Reason {
	var (
		fe *media.FetchError
		ce *media.CodecError
	)
	switch {
	case errors.As(err, &fe):
		return ReasonFetch
	case errors.As(err, &ce):
		return ReasonCodec
	case errors.Is(err, ErrNoFaceDetected):
		return ReasonNoFace
	}
	if _, ok := backend.AsError(err); ok {
		return ReasonBackend
	}
	switch stage {
	case StageFetching:
		return ReasonFetch
	case StagePreprocessing:
		return ReasonCodec
	}
	return ReasonBackend
}

// describe returns a short caller-safe description of err. Local file
// paths are never included.
func describe(err error) string {
	var fe *media.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.StatusCode != 0:
			return fmt.Sprintf("http status %d", fe.StatusCode)
		case errors.Is(err, media.ErrEmptyPayload):
			return "empty payload"
		case errors.Is(err, media.ErrTooLarge):
			return "payload too large"
		case errors.Is(err, media.ErrLocalDisallowed):
			return "local paths are not allowed"
		}
	}
	if e, ok := backend.AsError(err); ok {
		return fmt.Sprintf("backend http status %d", e.HTTPStatus)
	}
	switch {
	case errors.Is(err, ErrNoFaceDetected):
		return strings.TrimPrefix(err.Error(), "biometric: ")
	case errors.Is(err, ErrNoDetector):
		return "face detection is not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return ""
}
