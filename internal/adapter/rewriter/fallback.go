package rewriter

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"greencheck/internal/domain"
	"greencheck/internal/observability"
	"greencheck/internal/port"
)

// FallbackRewriter tries primary and rewrites with fallback when primary is
// unavailable or fails.
type FallbackRewriter struct {
	primary  port.Rewriter
	fallback port.Rewriter
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewFallbackRewriter(primary, fallback port.Rewriter, logger *zap.Logger, metrics *observability.Metrics) *FallbackRewriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackRewriter{primary: primary, fallback: fallback, logger: logger, metrics: metrics}
}

func (f *FallbackRewriter) Method() string {
	if f.primaryAvailable() {
		return f.primary.Method()
	}
	return f.fallback.Method()
}

// Rewrite returns the primary's adaptation or, after a primary failure, the
// fallback's adaptation with Error describing the failure.
func (f *FallbackRewriter) Rewrite(ctx context.Context, text string) (domain.Adaptation, error) {
	if f.fallback == nil {
		return domain.Adaptation{}, errors.New("fallback rewriter is required")
	}

	if !f.primaryAvailable() {
		return f.fallback.Rewrite(ctx, text)
	}

	adaptation, err := f.primary.Rewrite(ctx, text)
	if err == nil {
		return adaptation, nil
	}

	f.logger.Warn("primary rewriter failed, using fallback",
		zap.String("stage", "remote_rewrite"),
		zap.Error(err))
	f.metrics.ObserveLLMFailure("rewrite")

	adaptation, fbErr := f.fallback.Rewrite(ctx, text)
	if fbErr != nil {
		return domain.Adaptation{}, fmt.Errorf("failed to rewrite text: %w", errors.Join(err, fbErr))
	}
	adaptation.Error = err.Error()
	return adaptation, nil
}

func (f *FallbackRewriter) primaryAvailable() bool {
	if f.primary == nil {
		return false
	}
	if a, ok := f.primary.(port.Availability); ok {
		return a.Available()
	}
	return true
}
