package port

import (
	"context"

	"greencheck/internal/domain"
)

// CorpusStore persists reference documents and their chunks.
type CorpusStore interface {
	PutDocument(ctx context.Context, doc domain.Document) (domain.Document, error)

	GetDocumentBySource(ctx context.Context, sourceTag string) (domain.Document, error)

	DeleteDocumentBySource(ctx context.Context, sourceTag string) error

	DeleteChunksBySource(ctx context.Context, sourceTag string) error

	// InsertChunk writes a single chunk. It must be safe for concurrent use.
	InsertChunk(ctx context.Context, chunk domain.Chunk) error

	// SearchFullText ranks chunks of sourceTag by the store's relevance scoring.
	SearchFullText(ctx context.Context, sourceTag, query string, limit int) ([]domain.Chunk, error)

	// SearchSubstring returns chunks whose content contains needle, ignoring case.
	SearchSubstring(ctx context.Context, sourceTag, needle string, limit int) ([]domain.Chunk, error)

	SampleChunks(ctx context.Context, sourceTag string, limit int) ([]domain.Chunk, error)

	CountChunks(ctx context.Context, sourceTag string) (int, error)

	Close() error
}

// AuditLog is the append-only record of verifications.
type AuditLog interface {
	AppendDetection(ctx context.Context, d domain.Detection) error

	ListDetections(ctx context.Context, limit int) ([]domain.Detection, error)
}

// Store is a corpus store that also keeps the audit log.
type Store interface {
	CorpusStore
	AuditLog
}
