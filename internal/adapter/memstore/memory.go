package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/domain"
)

// Operation names accepted by FailOn.
const (
	OpPutDocument     = "put_document"
	OpDeleteDocument  = "delete_document"
	OpDeleteChunks    = "delete_chunks"
	OpInsertChunk     = "insert_chunk"
	OpSearchFullText  = "search_full_text"
	OpSearchSubstring = "search_substring"
	OpSampleChunks    = "sample_chunks"
	OpAppendDetection = "append_detection"
)

// MemoryStore is an in-process corpus store and audit log.
type MemoryStore struct {
	mu         sync.RWMutex
	docs       map[string]domain.Document
	chunks     map[string][]domain.Chunk
	detections []domain.Detection
	tokenizer  *analyzer.Tokenizer

	faults     map[string]error
	chunkFault func(domain.Chunk) error
	calls      map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		tokenizer: analyzer.NewTokenizer(),
		faults:    make(map[string]error),
		calls:     make(map[string]int),
	}
}

// FailOn makes every later call of op return err. A nil err clears the fault.
func (s *MemoryStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// FailChunks installs a per-chunk insert hook; a non-nil return rejects the chunk.
func (s *MemoryStore) FailChunks(fn func(domain.Chunk) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkFault = fn
}

// Calls reports how many times op was invoked.
func (s *MemoryStore) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// enter records the call and returns the injected fault. Callers hold mu.
func (s *MemoryStore) enter(op string) error {
	s.calls[op]++
	return s.faults[op]
}

func (s *MemoryStore) PutDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpPutDocument); err != nil {
		return domain.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	s.docs[doc.SourceTag] = doc
	return doc, nil
}

func (s *MemoryStore) GetDocumentBySource(ctx context.Context, sourceTag string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[sourceTag]
	if !ok {
		return domain.Document{}, fmt.Errorf("document for source %s: %w", sourceTag, domain.ErrNotFound)
	}
	return doc, nil
}

func (s *MemoryStore) DeleteDocumentBySource(ctx context.Context, sourceTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteDocument); err != nil {
		return err
	}
	delete(s.docs, sourceTag)
	return nil
}

func (s *MemoryStore) DeleteChunksBySource(ctx context.Context, sourceTag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpDeleteChunks); err != nil {
		return err
	}
	delete(s.chunks, sourceTag)
	return nil
}

func (s *MemoryStore) InsertChunk(ctx context.Context, chunk domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpInsertChunk); err != nil {
		return err
	}
	if s.chunkFault != nil {
		if err := s.chunkFault(chunk); err != nil {
			return err
		}
	}
	s.chunks[chunk.SourceTag] = append(s.chunks[chunk.SourceTag], chunk)
	return nil
}

// sorted returns a copy of the source's chunks in index order. Callers hold mu.
func (s *MemoryStore) sorted(sourceTag string) []domain.Chunk {
	chunks := append([]domain.Chunk(nil), s.chunks[sourceTag]...)
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})
	return chunks
}

// SearchFullText ranks by summed query-term frequency.
func (s *MemoryStore) SearchFullText(ctx context.Context, sourceTag, query string, limit int) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSearchFullText); err != nil {
		return nil, err
	}

	terms := s.tokenizer.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk domain.Chunk
		score int
	}
	var hits []scored
	for _, chunk := range s.sorted(sourceTag) {
		tf, _ := s.tokenizer.TermFrequencies(chunk.Content)
		score := 0
		for _, t := range terms {
			score += tf[t]
		}
		if score > 0 {
			hits = append(hits, scored{chunk, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	var out []domain.Chunk
	for _, h := range hits {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, h.chunk)
	}
	return out, nil
}

func (s *MemoryStore) SearchSubstring(ctx context.Context, sourceTag, needle string, limit int) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSearchSubstring); err != nil {
		return nil, err
	}
	needle = strings.ToLower(needle)
	if needle == "" {
		return nil, nil
	}

	var out []domain.Chunk
	for _, chunk := range s.sorted(sourceTag) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(chunk.Content), needle) {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (s *MemoryStore) SampleChunks(ctx context.Context, sourceTag string, limit int) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpSampleChunks); err != nil {
		return nil, err
	}
	chunks := s.sorted(sourceTag)
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

func (s *MemoryStore) CountChunks(ctx context.Context, sourceTag string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[sourceTag]), nil
}

func (s *MemoryStore) AppendDetection(ctx context.Context, d domain.Detection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(OpAppendDetection); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	s.detections = append(s.detections, d)
	return nil
}

func (s *MemoryStore) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Detection, 0, len(s.detections))
	for i := len(s.detections) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.detections[i])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
