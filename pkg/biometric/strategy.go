package biometric

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/biovault/verify/pkg/audio/compose"
	"github.com/biovault/verify/pkg/media"
)

// Input is what a strategy verifies: the prepared forms of both media
// items, and for voice the composed stream.
type Input struct {
	A, B   media.Artifact
	Stream *compose.Stream
}

// Strategy verifies one modality.
//
// Prepare converts fetched artifacts to the form the backend needs; its
// errors are classified by the pipeline. Verify never returns an error or
// panics: every failure is a negative Verdict with a Reason.
type Strategy interface {
	Modality() Modality
	Prepare(ctx context.Context, scope *media.Scope, a, b media.Artifact) (Input, error)
	Verify(ctx context.Context, in Input) Verdict
}

// guard runs verify and converts a panic into a backend-error verdict.
func guard(logger *slog.Logger, verify func() Verdict) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("biometric: verifier panicked", "panic", fmt.Sprint(r))
			v = Failure(ReasonBackend, "internal error")
		}
	}()
	return verify()
}

// fail converts err into a verdict, logging it with its stage.
func fail(logger *slog.Logger, err error, stage Stage) Verdict {
	reason := Classify(err, stage)
	logger.Warn("biometric: verification failed", "stage", stage.String(), "reason", reason, "error", err)
	return Failure(reason, describe(err))
}
