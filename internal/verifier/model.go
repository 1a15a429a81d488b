// Package verifier turns raw model output into a review decision.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-service/internal/models"

	"go.uber.org/zap"
)

// PipeErrorPrefix marks raw output captured from a failed model invocation
const PipeErrorPrefix = "PIPE_ERROR: "

// DefaultTimeout bounds a single model invocation
const DefaultTimeout = 20 * time.Second

// Generator produces raw text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of one model verification. Decision is nil when the
// model produced no usable verdict; Raw is kept either way for audit.
type Result struct {
	Decision *models.Decision
	Raw      string
	Err      error
}

// Usable reports whether the model produced a complete verdict
func (r Result) Usable() bool {
	return r.Decision != nil
}

// ModelVerifier asks the model for a verdict and extracts it from the reply
type ModelVerifier struct {
	gen     Generator
	timeout time.Duration
	logger  *zap.Logger
}

// NewModelVerifier creates a verifier over gen. A zero timeout uses DefaultTimeout.
func NewModelVerifier(gen Generator, timeout time.Duration, logger *zap.Logger) *ModelVerifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ModelVerifier{
		gen:     gen,
		timeout: timeout,
		logger:  logger,
	}
}

// Verify never returns an error: invocation failures are folded into Result.Raw
// as a PIPE_ERROR marker and reported as unusable.
func (v *ModelVerifier) Verify(ctx context.Context, prompt string) Result {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	raw, err := v.generate(ctx, prompt)
	if err != nil {
		v.logger.Warn("Model invocation failed", zap.Error(err))
		return Result{Raw: PipeErrorPrefix + err.Error(), Err: err}
	}

	if raw == "" {
		v.logger.Debug("Model returned empty output")
		return Result{Err: ErrNoVerdict}
	}

	span, ok := ExtractJSONSpan(raw)
	if !ok {
		v.logger.Debug("No JSON object in model output", zap.String("raw", raw))
		return Result{Raw: raw, Err: ErrNoVerdict}
	}

	parsed, ok := parseVerdict(span)
	if !ok {
		v.logger.Debug("Model verdict unusable", zap.String("span", span))
		return Result{Raw: raw, Err: ErrNoVerdict}
	}

	return Result{
		Decision: &models.Decision{
			Decision: models.Verdict(parsed.Decision),
			Feedback: parsed.Feedback,
			Raw:      raw,
		},
		Raw: raw,
	}
}

// ErrNoVerdict means the model replied but without a usable verdict
var ErrNoVerdict = errors.New("no usable verdict in model output")

type generation struct {
	raw string
	err error
}

// generate bounds the call by ctx even when the provider ignores it, and turns a
// panicking runtime into an ordinary invocation failure.
func (v *ModelVerifier) generate(ctx context.Context, prompt string) (string, error) {
	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("model panicked: %v", r)}
			}
		}()
		raw, err := v.gen.Generate(ctx, prompt)
		done <- generation{raw: raw, err: err}
	}()

	select {
	case g := <-done:
		return g.raw, g.err
	case <-ctx.Done():
		return "", fmt.Errorf("model invocation timed out: %w", ctx.Err())
	}
}
