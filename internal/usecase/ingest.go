package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"greencheck/config"
	"greencheck/internal/adapter/extract"
	"greencheck/internal/domain"
	"greencheck/internal/observability"
	"greencheck/internal/port"
)

const documentSource = "official_report"

// Invalidator is notified after a corpus has been replaced.
type Invalidator interface {
	Invalidate()
}

// ProgressFunc reports inserted chunk batches: done of total chunks attempted.
type ProgressFunc func(done, total int)

// IngestUseCase replaces the reference corpus of a source tag.
type IngestUseCase struct {
	store   port.CorpusStore
	chunker port.Chunker
	corpus  config.CorpusConfig
	cfg     config.IngestConfig
	cache   Invalidator
	logger  *zap.Logger
	metrics *observability.Metrics

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewIngestUseCase(
	store port.CorpusStore,
	chunker port.Chunker,
	corpus config.CorpusConfig,
	cfg config.IngestConfig,
	cache Invalidator,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.HashPrefix <= 0 {
		cfg.HashPrefix = 1000
	}
	return &IngestUseCase{
		store:   store,
		chunker: chunker,
		corpus:  corpus,
		cfg:     cfg,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

// IngestOptions carries optional per-call settings.
type IngestOptions struct {
	Progress ProgressFunc
}

// Ingest deletes the current corpus for sourceTag and stores content in its
// place. Chunk insert failures are logged and excluded from ChunksCreated.
func (u *IngestUseCase) Ingest(ctx context.Context, content, filename, sourceTag string) (domain.IngestResult, error) {
	return u.IngestWithOptions(ctx, content, filename, sourceTag, IngestOptions{})
}

func (u *IngestUseCase) IngestWithOptions(ctx context.Context, content, filename, sourceTag string, opts IngestOptions) (domain.IngestResult, error) {
	if isBlank(content) {
		return domain.IngestResult{}, &domain.InputError{Field: "content", Err: errors.New("content is required")}
	}
	if sourceTag == "" {
		sourceTag = u.corpus.SourceTag
	}

	text, err := extract.Text(filename, content)
	if err != nil {
		return domain.IngestResult{}, &domain.InputError{Field: "content", Err: err}
	}
	if isBlank(text) {
		return domain.IngestResult{}, &domain.InputError{Field: "content", Err: errors.New("no text could be extracted")}
	}

	if u.cfg.SerializePerTag {
		unlock := u.lock(sourceTag)
		defer unlock()
	}

	if err := u.store.DeleteChunksBySource(ctx, sourceTag); err != nil {
		return domain.IngestResult{}, &domain.IngestionError{Stage: "delete_chunks", Err: err}
	}
	if err := u.store.DeleteDocumentBySource(ctx, sourceTag); err != nil {
		return domain.IngestResult{}, &domain.IngestionError{Stage: "delete_document", Err: err}
	}

	doc, err := u.store.PutDocument(ctx, domain.Document{
		SourceTag: sourceTag,
		Name:      documentName(u.corpus.Name, filename),
		Content:   text,
		Metadata: domain.DocumentMetadata{
			Source:      documentSource,
			Year:        u.corpus.Year,
			Filename:    filename,
			ContentHash: ContentHash(text, u.cfg.HashPrefix),
			ProcessedAt: time.Now().UTC(),
		},
		PublicRead: true,
	})
	if err != nil {
		return domain.IngestResult{}, &domain.IngestionError{Stage: "insert_document", Err: err}
	}

	chunks := u.chunker.Chunk(doc, text)
	inserted, err := u.insertBatches(ctx, chunks, opts.Progress)
	failed := len(chunks) - inserted

	u.metrics.ObserveIngest(inserted, failed)
	if u.cache != nil {
		u.cache.Invalidate()
	}
	if err != nil {
		u.logger.Warn("ingestion cancelled",
			zap.String("stage", "insert_chunks"),
			zap.String("source_tag", sourceTag),
			zap.Int("chunks_created", inserted),
			zap.Int("chunks_produced", len(chunks)),
			zap.Error(err))
		return domain.IngestResult{}, &domain.IngestionError{Stage: "insert_chunks", Err: err}
	}

	u.logger.Info("corpus replaced",
		zap.String("source_tag", sourceTag),
		zap.String("document_id", doc.ID),
		zap.String("filename", filename),
		zap.Int("chunks_produced", len(chunks)),
		zap.Int("chunks_created", inserted))

	return domain.IngestResult{
		DocumentID:     doc.ID,
		ChunksCreated:  inserted,
		ChunksProduced: len(chunks),
		ContentLength:  utf8.RuneCountInString(content),
		Filename:       filename,
	}, nil
}

// insertBatches writes chunks in fixed-size batches. Inserts inside a batch
// run concurrently; batches run one after another. It stops with ctx's
// error once ctx is done.
func (u *IngestUseCase) insertBatches(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) (int, error) {
	var inserted atomic.Int64

	for start := 0; start < len(chunks); start += u.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return int(inserted.Load()), err
		}
		end := min(start+u.cfg.BatchSize, len(chunks))

		var g errgroup.Group
		g.SetLimit(u.cfg.BatchSize)
		for _, chunk := range chunks[start:end] {
			g.Go(func() error {
				if err := u.store.InsertChunk(ctx, chunk); err != nil {
					u.logger.Warn("failed to insert chunk",
						zap.String("stage", "insert_chunk"),
						zap.String("source_tag", chunk.SourceTag),
						zap.Int("chunk_index", chunk.Index),
						zap.Error(err))
					return nil
				}
				inserted.Add(1)
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return int(inserted.Load()), err
		}
		if progress != nil {
			progress(end, len(chunks))
		}
	}

	return int(inserted.Load()), nil
}

func (u *IngestUseCase) lock(sourceTag string) func() {
	u.locksMu.Lock()
	m, ok := u.locks[sourceTag]
	if !ok {
		m = &sync.Mutex{}
		u.locks[sourceTag] = m
	}
	u.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

// ContentHash fingerprints the first prefix bytes of content.
func ContentHash(content string, prefix int) string {
	data := []byte(content)
	if prefix > 0 && len(data) > prefix {
		data = data[:prefix]
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func documentName(corpusName, filename string) string {
	if filename == "" {
		return corpusName
	}
	return fmt.Sprintf("%s - %s", corpusName, filename)
}
