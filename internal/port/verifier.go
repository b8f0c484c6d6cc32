package port

import (
	"context"

	"greencheck/internal/domain"
)

// Verifier judges marketing text against retrieved reference chunks.
type Verifier interface {
	Verify(ctx context.Context, text string, chunks []domain.Chunk) (domain.Verdict, error)

	// Method names the analysis path, e.g. "llm" or "local_pattern".
	Method() string
}

// Rewriter produces a version of the text without vague environmental claims.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) (domain.Adaptation, error)

	Method() string
}
