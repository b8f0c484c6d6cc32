package retriever

import (
	"context"

	"golang.org/x/sync/errgroup"

	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/domain"
	"greencheck/internal/observability"
)

// Searcher is the read side of a corpus store.
type Searcher interface {
	SearchFullText(ctx context.Context, sourceTag, query string, limit int) ([]domain.Chunk, error)
	SearchSubstring(ctx context.Context, sourceTag, needle string, limit int) ([]domain.Chunk, error)
	SampleChunks(ctx context.Context, sourceTag string, limit int) ([]domain.Chunk, error)
}

// Tier names, also used as metric labels.
const (
	TierFullText = "full_text"
	TierKeyword  = "keyword"
	TierSample   = "sample"
	TierEmpty    = "empty"
)

type Options struct {
	DefaultLimit   int
	MaxKeywords    int
	KeywordResults int
	MinKeywordLen  int
	SampleSize     int
}

func DefaultOptions() Options {
	return Options{
		DefaultLimit:   10,
		MaxKeywords:    5,
		KeywordResults: 3,
		MinKeywordLen:  4,
		SampleSize:     5,
	}
}

// TieredRetriever tries full-text search, then per-keyword substring search,
// then an arbitrary sample, stopping at the first tier with results.
type TieredRetriever struct {
	store   Searcher
	opts    Options
	metrics *observability.Metrics
}

func NewTieredRetriever(store Searcher, opts Options, metrics *observability.Metrics) *TieredRetriever {
	def := DefaultOptions()
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = def.DefaultLimit
	}
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = def.MaxKeywords
	}
	if opts.KeywordResults <= 0 {
		opts.KeywordResults = def.KeywordResults
	}
	if opts.MinKeywordLen <= 0 {
		opts.MinKeywordLen = def.MinKeywordLen
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = def.SampleSize
	}
	return &TieredRetriever{store: store, opts: opts, metrics: metrics}
}

// Retrieve returns chunks for query, or a *domain.RetrievalError naming the
// tier whose store call failed.
func (r *TieredRetriever) Retrieve(ctx context.Context, query, sourceTag string, limit int) ([]domain.Chunk, error) {
	if limit <= 0 {
		limit = r.opts.DefaultLimit
	}

	chunks, err := r.store.SearchFullText(ctx, sourceTag, query, limit)
	if err != nil {
		return nil, &domain.RetrievalError{Stage: TierFullText, Err: err}
	}
	if len(chunks) > 0 {
		r.metrics.ObserveTier(TierFullText)
		return chunks, nil
	}

	chunks, err = r.searchKeywords(ctx, query, sourceTag)
	if err != nil {
		return nil, &domain.RetrievalError{Stage: TierKeyword, Err: err}
	}
	if len(chunks) > 0 {
		r.metrics.ObserveTier(TierKeyword)
		return chunks, nil
	}

	chunks, err = r.store.SampleChunks(ctx, sourceTag, r.opts.SampleSize)
	if err != nil {
		return nil, &domain.RetrievalError{Stage: TierSample, Err: err}
	}
	if len(chunks) > 0 {
		r.metrics.ObserveTier(TierSample)
		return chunks, nil
	}

	r.metrics.ObserveTier(TierEmpty)
	return nil, nil
}

// searchKeywords runs one substring search per keyword concurrently and
// merges the results in keyword order, dropping repeated content.
func (r *TieredRetriever) searchKeywords(ctx context.Context, query, sourceTag string) ([]domain.Chunk, error) {
	keywords := analyzer.Keywords(query, r.opts.MinKeywordLen, r.opts.MaxKeywords)
	if len(keywords) == 0 {
		return nil, nil
	}

	perKeyword := make([][]domain.Chunk, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			found, err := r.store.SearchSubstring(gctx, sourceTag, kw, r.opts.KeywordResults)
			if err != nil {
				return err
			}
			perKeyword[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupeByContent(perKeyword), nil
}

func dedupeByContent(groups [][]domain.Chunk) []domain.Chunk {
	seen := make(map[string]struct{})
	var out []domain.Chunk
	for _, group := range groups {
		for _, c := range group {
			if _, ok := seen[c.Content]; ok {
				continue
			}
			seen[c.Content] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
