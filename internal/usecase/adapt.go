package usecase

import (
	"context"
	"fmt"
	"strings"

	"greencheck/internal/domain"
	"greencheck/internal/port"
)

// AdaptUseCase rewrites marketing text without vague environmental claims.
type AdaptUseCase struct {
	rewriter port.Rewriter
}

func NewAdaptUseCase(rewriter port.Rewriter) *AdaptUseCase {
	return &AdaptUseCase{rewriter: rewriter}
}

func (u *AdaptUseCase) Adapt(ctx context.Context, text string) (domain.Adaptation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Adaptation{}, &domain.InputError{Field: "text", Err: domain.ErrEmptyText}
	}

	adaptation, err := u.rewriter.Rewrite(ctx, text)
	if err != nil {
		return domain.Adaptation{}, fmt.Errorf("failed to adapt text: %w", err)
	}
	adaptation.Before = text
	if adaptation.Changes == nil {
		adaptation.Changes = []domain.Change{}
	}
	return adaptation, nil
}
