// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate runs one generation end to end: build the request, stream
// the completion through a decoder while reporting progress, finalize, and
// normalize into a types.Document. Every failure is classified as invalid
// request, service unavailable, or malformed output. There are no retries.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paperviz/internal/completion"
	"github.com/pdiddy/paperviz/internal/decode"
	"github.com/pdiddy/paperviz/internal/request"
	"github.com/pdiddy/paperviz/pkg/types"
)

var (
	// ErrInvalidRequest means the request could not be built.
	ErrInvalidRequest = request.ErrInvalidRequest

	// ErrServiceUnavailable covers transport failures, cancellation, and
	// deadlines.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedOutput means the finished stream did not decode.
	ErrMalformedOutput = decode.ErrMalformedOutput
)

// Outcome labels the result of a generation for logs and metrics.
type Outcome string

const (
	OutcomeOK                 Outcome = "ok"
	OutcomeInvalidRequest     Outcome = "invalid_request"
	OutcomeServiceUnavailable Outcome = "service_unavailable"
	OutcomeMalformedOutput    Outcome = "malformed_output"
)

// OutcomeOf classifies err.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidRequest):
		return OutcomeInvalidRequest
	case errors.Is(err, ErrMalformedOutput):
		return OutcomeMalformedOutput
	}
	return OutcomeServiceUnavailable
}

// Error is a classified generation failure. Raw holds whatever text had
// streamed when the failure occurred.
type Error struct {
	Kind types.OutputKind
	Raw  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns text suitable for an end user. It never includes
// parser or transport detail.
func (e *Error) UserMessage() string {
	switch OutcomeOf(e) {
	case OutcomeInvalidRequest:
		return "Nothing to generate from. Enter some text or attach a file and try again."
	case OutcomeMalformedOutput:
		return "Failed to parse generated content. The model might have been interrupted. Please try again."
	}
	return "Failed to generate content. Please check your API key and try again."
}

// ProgressFunc receives the full transcript after every fragment.
type ProgressFunc func(text string)

// Observer is notified of generation lifecycle events. Calls are made on the
// generating goroutine.
type Observer interface {
	GenerationStarted(kind types.OutputKind)
	FragmentReceived(kind types.OutputKind)
	GenerationFinished(kind types.OutputKind, outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) GenerationStarted(types.OutputKind) {}

func (nopObserver) FragmentReceived(types.OutputKind) {}

func (nopObserver) GenerationFinished(types.OutputKind, Outcome, time.Duration) {}

// Generator runs generations against a completion service. It holds no
// per-generation state and is safe for concurrent use when its service is.
type Generator struct {
	service  completion.Service
	builder  *request.Builder
	logger   *zap.Logger
	observer Observer
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithBuilder sets the request builder, and with it the model policy.
func WithBuilder(b *request.Builder) Option {
	return func(g *Generator) {
		if b != nil {
			g.builder = b
		}
	}
}

// WithObserver registers a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o != nil {
			g.observer = o
		}
	}
}

// New returns a Generator that streams from service.
func New(service completion.Service, opts ...Option) *Generator {
	g := &Generator{
		service:  service,
		builder:  request.NewBuilder(types.GenerationConfig{}),
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces the document for req. onProgress, when non-nil, is called
// synchronously with the transcript after each fragment and never after ctx
// is done. On failure the returned error is a *Error.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest, onProgress ProgressFunc) (*types.Document, error) {
	start := time.Now()
	g.observer.GenerationStarted(req.Kind)

	doc, err := g.generate(ctx, req, onProgress)

	elapsed := time.Since(start)
	outcome := OutcomeOf(err)
	g.observer.GenerationFinished(req.Kind, outcome, elapsed)
	if err != nil {
		g.logger.Warn("generation failed",
			zap.String("kind", string(req.Kind)),
			zap.String("outcome", string(outcome)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	g.logger.Info("generation finished",
		zap.String("kind", string(req.Kind)),
		zap.Duration("elapsed", elapsed))
	return doc, nil
}

func (g *Generator) generate(ctx context.Context, req types.GenerationRequest, onProgress ProgressFunc) (*types.Document, error) {
	call, err := g.builder.Build(req)
	if err != nil {
		return nil, &Error{Kind: req.Kind, Err: err}
	}

	g.logger.Debug("generation start",
		zap.String("kind", string(req.Kind)),
		zap.String("model", call.Model),
		zap.Bool("reasoning", req.UseReasoning),
		zap.Bool("attachment", req.Attachment != nil))

	dec := decode.New(req.Kind)
	fragments := 0
	for fragment, err := range g.service.Stream(ctx, call) {
		if err != nil {
			return nil, g.unavailable(req.Kind, dec.Text(), err)
		}
		if ctx.Err() != nil {
			break
		}
		dec.Feed(fragment)
		fragments++
		g.observer.FragmentReceived(req.Kind)
		if onProgress != nil {
			onProgress(dec.Text())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, g.unavailable(req.Kind, dec.Text(), err)
	}

	g.logger.Debug("stream complete",
		zap.String("kind", string(req.Kind)),
		zap.Int("fragments", fragments),
		zap.Int("bytes", len(dec.Text())))

	decoded, err := dec.Finalize()
	if err != nil {
		return nil, &Error{Kind: req.Kind, Raw: dec.Text(), Err: err}
	}
	return Normalize(decoded), nil
}

func (g *Generator) unavailable(kind types.OutputKind, raw string, cause error) error {
	return &Error{Kind: kind, Raw: raw, Err: fmt.Errorf("%w: %w", ErrServiceUnavailable, cause)}
}

// Normalize converts a decoded envelope to the caller-facing document. SLIDES
// loses its envelope and reasoning; the other kinds pass through.
func Normalize(d *decode.Document) *types.Document {
	out := &types.Document{Kind: d.Kind}
	switch {
	case d.Slides != nil:
		out.Slides = d.Slides.Slides
	case d.Poster != nil:
		out.Poster = d.Poster
	case d.Diagram != nil:
		out.Diagram = d.Diagram
	case d.Analysis != nil:
		out.Analysis = d.Analysis
	}
	return out
}
