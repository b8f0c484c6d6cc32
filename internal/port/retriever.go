package port

import (
	"context"

	"greencheck/internal/domain"
)

// Retriever returns the chunks of a source tag most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query, sourceTag string, limit int) ([]domain.Chunk, error)
}
