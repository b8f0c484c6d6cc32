package usecase

import (
	"context"
	"errors"
	"fmt"

	"greencheck/internal/domain"
	"greencheck/internal/port"
)

// Stats summarizes the corpus of sourceTag and the size of the audit log.
func Stats(ctx context.Context, store port.Store, sourceTag string) (domain.CorpusStats, error) {
	stats := domain.CorpusStats{SourceTag: sourceTag}

	doc, err := store.GetDocumentBySource(ctx, sourceTag)
	switch {
	case err == nil:
		stats.DocumentID = doc.ID
		stats.ContentHash = doc.Metadata.ContentHash
	case !errors.Is(err, domain.ErrNotFound):
		return stats, fmt.Errorf("failed to get document: %w", err)
	}

	if stats.Chunks, err = store.CountChunks(ctx, sourceTag); err != nil {
		return stats, fmt.Errorf("failed to count chunks: %w", err)
	}

	detections, err := store.ListDetections(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("failed to list detections: %w", err)
	}
	stats.Detections = len(detections)

	return stats, nil
}
