package verifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"greencheck/internal/domain"
	"greencheck/internal/observability"
	"greencheck/internal/port"
)

// Result is a verdict together with the path that produced it.
type Result struct {
	Verdict  domain.Verdict
	Method   string
	Fallback bool
	// PrimaryErr is the error that caused the fallback, if any.
	PrimaryErr error
}

// FallbackVerifier tries primary and switches to fallback when primary is
// unavailable or fails for any reason.
type FallbackVerifier struct {
	primary  port.Verifier
	fallback port.Verifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func NewFallbackVerifier(primary, fallback port.Verifier, logger *zap.Logger, metrics *observability.Metrics) *FallbackVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackVerifier{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// Method names the path used when the primary is healthy.
func (f *FallbackVerifier) Method() string {
	if f.primaryAvailable() {
		return f.primary.Method()
	}
	return f.fallback.Method()
}

func (f *FallbackVerifier) Verify(ctx context.Context, text string, chunks []domain.Chunk) (domain.Verdict, error) {
	res, err := f.Run(ctx, text, chunks)
	return res.Verdict, err
}

// Run verifies text and reports which verifier produced the verdict.
func (f *FallbackVerifier) Run(ctx context.Context, text string, chunks []domain.Chunk) (Result, error) {
	if f.fallback == nil {
		return Result{}, errors.New("fallback verifier is required")
	}

	if !f.primaryAvailable() {
		return f.runFallback(ctx, text, chunks, nil)
	}

	verdict, err := f.primary.Verify(ctx, text, chunks)
	if err == nil {
		return Result{Verdict: verdict, Method: f.primary.Method()}, nil
	}

	step := "verify"
	var rvErr *domain.RemoteVerifierError
	if errors.As(err, &rvErr) {
		step = rvErr.Stage
	}
	f.logger.Warn("primary verifier failed, using fallback",
		zap.String("stage", "remote_verify"),
		zap.String("step", step),
		zap.String("primary", f.primary.Method()),
		zap.String("fallback", f.fallback.Method()),
		zap.Error(err))
	f.metrics.ObserveLLMFailure(step)

	return f.runFallback(ctx, text, chunks, err)
}

func (f *FallbackVerifier) runFallback(ctx context.Context, text string, chunks []domain.Chunk, primaryErr error) (Result, error) {
	verdict, err := f.fallback.Verify(ctx, text, chunks)
	if err != nil {
		if primaryErr != nil {
			return Result{}, fmt.Errorf("failed to verify text: %w", errors.Join(primaryErr, err))
		}
		return Result{}, fmt.Errorf("failed to verify text: %w", err)
	}
	return Result{
		Verdict:    verdict,
		Method:     f.fallback.Method(),
		Fallback:   f.primary != nil,
		PrimaryErr: primaryErr,
	}, nil
}

func (f *FallbackVerifier) primaryAvailable() bool {
	if f.primary == nil {
		return false
	}
	if a, ok := f.primary.(port.Availability); ok {
		return a.Available()
	}
	return true
}
