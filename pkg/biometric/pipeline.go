package biometric

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/biovault/verify/pkg/media"
	"github.com/biovault/verify/pkg/storage"
)

// Pipeline runs verification requests. It holds no per-request state and is
// safe for concurrent use.
type Pipeline struct {
	dir     *storage.Local
	fetcher *media.Fetcher
	face    Strategy
	voice   Strategy
	logger  *slog.Logger
	onStage func(Stage)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithStageObserver registers fn to be called on every stage transition
// of every request. fn must be safe for concurrent use.
func WithStageObserver(fn func(Stage)) PipelineOption {
	return func(p *Pipeline) { p.onStage = fn }
}

// NewPipeline creates a Pipeline writing transient files to dir.
func NewPipeline(dir *storage.Local, fetcher *media.Fetcher, face, voice Strategy, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		dir:     dir,
		fetcher: fetcher,
		face:    face,
		voice:   voice,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) strategy(m Modality) Strategy {
	switch m {
	case ModalityFace:
		return p.face
	case ModalityVoice:
		return p.voice
	}
	return nil
}

// Verify runs req through every stage and returns its verdict. The error is
// non-nil only for an invalid request, in which case nothing was fetched.
// Logs go to the logger attached with ContextWithLogger, if any.
//
// Transient files are removed before Verify returns, even when ctx is
// cancelled.
func (p *Pipeline) Verify(ctx context.Context, req Request) (Verdict, error) {
	if err := req.Validate(); err != nil {
		return Verdict{}, err
	}
	strat := p.strategy(req.Modality)
	if strat == nil {
		return Verdict{}, fmt.Errorf("%w: no %v strategy configured", ErrInvalidRequest, req.Modality)
	}
	return p.run(ctx, strat, req), nil
}

func (p *Pipeline) run(ctx context.Context, strat Strategy, req Request) (v Verdict) {
	logger := LoggerFrom(ctx, p.logger).With("modality", req.Modality.String())
	scope := media.NewScope(p.dir, logger)
	stage := StageFetching

	defer func() {
		if r := recover(); r != nil {
			logger.Error("biometric: pipeline panicked", "stage", stage.String(), "panic", fmt.Sprint(r))
			v = Failure(Classify(nil, stage), "internal error")
		}
		p.enter(logger, StageCleanup)
		scope.Close()
		p.enter(logger, StageDone)
	}()

	p.enter(logger, stage)
	a, b, err := p.fetch(ctx, scope, req)
	if err != nil {
		return fail(logger, err, stage)
	}

	stage = StagePreprocessing
	p.enter(logger, stage)
	if err := ctx.Err(); err != nil {
		return fail(logger, err, stage)
	}
	in, err := strat.Prepare(ctx, scope, a, b)
	if err != nil {
		return fail(logger, err, stage)
	}

	stage = StageVerifying
	p.enter(logger, stage)
	if err := ctx.Err(); err != nil {
		return fail(logger, err, stage)
	}
	v = strat.Verify(ctx, in)
	logger.Info("biometric: verified", "verified", v.Verified, "error", v.Error)
	return v
}

// fetch retrieves both references concurrently.
func (p *Pipeline) fetch(ctx context.Context, scope *media.Scope, req Request) (a, b media.Artifact, err error) {
	kind := req.Modality.Kind()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = p.fetcher.Fetch(gctx, scope, req.A, kind)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = p.fetcher.Fetch(gctx, scope, req.B, kind)
		return err
	})
	err = g.Wait()
	return a, b, err
}

func (p *Pipeline) enter(logger *slog.Logger, s Stage) {
	logger.Debug("biometric: stage", "stage", s.String())
	if p.onStage != nil {
		p.onStage(s)
	}
}
