package service

import (
	"context"
	"time"

	"review-service/internal/heuristic"
	"review-service/internal/llm"
	"review-service/internal/models"
	"review-service/internal/prompt"
	"review-service/internal/verifier"

	"go.uber.org/zap"
)

// DefaultFallbackSuffix is appended to heuristic feedback so authors know no model reviewed them
const DefaultFallbackSuffix = " (review performed by local fallback)"

const softenedPrefix = "This draft shows potential but needs revision before publication. "

// Options tunes the Reviewer
type Options struct {
	Timeout          time.Duration // per model invocation
	FallbackSuffix   string
	SoftenRejections bool // downgrade model rejections without hard-reject content
}

// Reviewer decides whether an article can be published. It prefers the model
// and falls back to the heuristic rule chain; it always returns a Decision.
type Reviewer struct {
	generator llm.Generator
	model     *verifier.ModelVerifier
	rules     *heuristic.Verifier
	opts      Options
	logger    *zap.Logger
}

// NewReviewer creates a reviewer. A nil generator puts it in degraded mode,
// where every article is decided by the rule chain.
func NewReviewer(generator llm.Generator, rules *heuristic.Verifier, opts Options, logger *zap.Logger) *Reviewer {
	if rules == nil {
		rules = heuristic.NewVerifier(nil)
	}
	if opts.FallbackSuffix == "" {
		opts.FallbackSuffix = DefaultFallbackSuffix
	}

	r := &Reviewer{
		generator: generator,
		rules:     rules,
		opts:      opts,
		logger:    logger,
	}
	if generator != nil {
		r.model = verifier.NewModelVerifier(generator, opts.Timeout, logger)
	}
	return r
}

// Degraded reports whether the reviewer runs without a model
func (r *Reviewer) Degraded() bool {
	return r.model == nil
}

// ModelInfo describes the loaded model, or nil in degraded mode
func (r *Reviewer) ModelInfo() map[string]interface{} {
	if r.generator == nil {
		return nil
	}
	return r.generator.GetModelInfo()
}

// ProvidersInfo describes every configured provider when the handle fails over
// between several, or nil otherwise
func (r *Reviewer) ProvidersInfo() []map[string]interface{} {
	multi, ok := r.generator.(interface {
		GetProvidersInfo() []map[string]interface{}
	})
	if !ok {
		return nil
	}
	return multi.GetProvidersInfo()
}

// Rules exposes the fallback rule chain
func (r *Reviewer) Rules() *heuristic.Verifier {
	return r.rules
}

// Review returns a decision for article
func (r *Reviewer) Review(ctx context.Context, article models.Article) *models.Decision {
	var raw string

	if r.model != nil {
		result := r.model.Verify(ctx, prompt.Build(article))
		if result.Usable() {
			return r.acceptModelDecision(article, result.Decision)
		}
		raw = result.Raw
		r.logger.Info("Falling back to heuristic review", zap.Error(result.Err))
	}

	fallback := r.rules.Verify(article)

	r.logger.Debug("Heuristic decision",
		zap.String("decision", string(fallback.Decision)),
		zap.String("rule", r.rules.Explain(article)))

	return &models.Decision{
		Decision: fallback.Decision,
		Feedback: fallback.Feedback + r.opts.FallbackSuffix,
		Raw:      raw,
	}
}

// acceptModelDecision keeps the model's feedback but holds the three-value invariant
func (r *Reviewer) acceptModelDecision(article models.Article, d *models.Decision) *models.Decision {
	if !d.Decision.Valid() {
		r.logger.Warn("Model returned unknown decision, coercing to needs_revision",
			zap.String("decision", string(d.Decision)))
		d.Decision = models.NeedsRevision
	}

	if r.opts.SoftenRejections && d.Decision == models.Rejected && !r.rules.HardReject(article) {
		d.Decision = models.NeedsRevision
		d.Feedback = softenedPrefix + d.Feedback
	}

	r.logger.Debug("Model decision accepted", zap.String("decision", string(d.Decision)))
	return d
}
