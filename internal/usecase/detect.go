package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"greencheck/internal/adapter/verifier"
	"greencheck/internal/domain"
	"greencheck/internal/observability"
	"greencheck/internal/port"
)

// VerdictRunner verifies text and reports the analysis path used.
type VerdictRunner interface {
	Run(ctx context.Context, text string, chunks []domain.Chunk) (verifier.Result, error)
}

// DetectResponse is a verdict plus how it was produced.
type DetectResponse struct {
	domain.Verdict
	Score          int      `json:"score"`
	ContextUsed    int      `json:"pg_context_used"`
	AnalysisMethod string   `json:"analysis_method"`
	Warnings       []string `json:"warnings,omitempty"`
}

type DetectUseCase struct {
	retriever port.Retriever
	verifier  VerdictRunner
	audit     port.AuditLog
	sourceTag string
	topK      int
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewDetectUseCase(
	retriever port.Retriever,
	verifier VerdictRunner,
	audit port.AuditLog,
	sourceTag string,
	topK int,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *DetectUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK <= 0 {
		topK = 10
	}
	return &DetectUseCase{
		retriever: retriever,
		verifier:  verifier,
		audit:     audit,
		sourceTag: sourceTag,
		topK:      topK,
		logger:    logger,
		metrics:   metrics,
	}
}

// Detect retrieves reference context for text, verifies it and records the
// outcome in the audit log. Retrieval and audit failures degrade the
// response instead of failing it.
func (u *DetectUseCase) Detect(ctx context.Context, text string) (DetectResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return DetectResponse{}, &domain.InputError{Field: "text", Err: domain.ErrEmptyText}
	}

	var warnings []string

	chunks, err := u.retriever.Retrieve(ctx, text, u.sourceTag, u.topK)
	if err != nil {
		stage := "retrieve"
		var rErr *domain.RetrievalError
		if errors.As(err, &rErr) {
			stage = rErr.Stage
		}
		u.logger.Warn("retrieval failed, verifying without context",
			zap.String("stage", stage),
			zap.String("source_tag", u.sourceTag),
			zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("reference context unavailable: %v", err))
		chunks = nil
	}

	result, err := u.verifier.Run(ctx, text, chunks)
	if err != nil {
		return DetectResponse{}, fmt.Errorf("failed to verify text: %w", err)
	}

	detection := domain.Detection{
		ID:        uuid.NewString(),
		Text:      text,
		Label:     result.Verdict.Label,
		Method:    result.Method,
		Result:    result.Verdict,
		CreatedAt: time.Now().UTC(),
	}
	if err := u.audit.AppendDetection(ctx, detection); err != nil {
		u.logger.Warn("failed to record detection",
			zap.String("stage", "audit_log"),
			zap.String("detection_id", detection.ID),
			zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("detection was not recorded: %v", err))
	}

	u.metrics.ObserveDetection(result.Method, string(result.Verdict.Label))

	return DetectResponse{
		Verdict:        result.Verdict,
		Score:          result.Verdict.Label.Score(),
		ContextUsed:    len(chunks),
		AnalysisMethod: result.Method,
		Warnings:       warnings,
	}, nil
}

// Recent lists the latest audit records, newest first.
func (u *DetectUseCase) Recent(ctx context.Context, limit int) ([]domain.Detection, error) {
	detections, err := u.audit.ListDetections(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list detections: %w", err)
	}
	return detections, nil
}
