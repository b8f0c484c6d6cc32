package port

import "greencheck/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document, content string) []domain.Chunk
}
