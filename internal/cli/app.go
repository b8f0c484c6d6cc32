package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"greencheck/config"
	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/adapter/cache"
	"greencheck/internal/adapter/chunker"
	"greencheck/internal/adapter/llm"
	"greencheck/internal/adapter/memstore"
	"greencheck/internal/adapter/retriever"
	"greencheck/internal/adapter/rewriter"
	"greencheck/internal/adapter/store"
	"greencheck/internal/adapter/verifier"
	"greencheck/internal/observability"
	"greencheck/internal/port"
	"greencheck/internal/usecase"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	store      port.Store
	llmEnabled bool

	ingest *usecase.IngestUseCase
	detect *usecase.DetectUseCase
	adapt  *usecase.AdaptUseCase
	seed   *usecase.SeedUseCase
}

func newApp(ctx context.Context, cfg *config.Config, dir string, logger *zap.Logger) (*app, error) {
	metrics := observability.NewMetrics()

	st, err := openStore(ctx, cfg, dir, logger)
	if err != nil {
		return nil, err
	}

	var ret port.Retriever = retriever.NewTieredRetriever(st, retriever.Options{
		DefaultLimit:   cfg.Retrieve.TopK,
		MaxKeywords:    cfg.Retrieve.MaxKeywords,
		KeywordResults: cfg.Retrieve.KeywordResults,
		MinKeywordLen:  cfg.Retrieve.MinKeywordLen,
		SampleSize:     cfg.Retrieve.SampleSize,
	}, metrics)

	var invalidator usecase.Invalidator
	if cfg.Retrieve.CacheTTLSec > 0 {
		cached := cache.NewCachedRetriever(ret, cache.NewQueryCache(time.Duration(cfg.Retrieve.CacheTTLSec)*time.Second))
		ret = cached
		invalidator = cached
	}

	var model port.LLM
	if cfg.LLM.Provider != "" && cfg.LLM.ResolveAPIKey() != "" {
		client, err := llm.NewOpenAIClient(llm.ConfigFrom(cfg.LLM))
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to create language model client: %w", err)
		}
		model = client
	} else {
		logger.Info("no language model API key configured, using local analysis only")
	}

	fv := verifier.NewFallbackVerifier(verifier.NewRemoteVerifier(model), verifier.NewLocalVerifier(nil), logger, metrics)
	fr := rewriter.NewFallbackRewriter(rewriter.NewLLMRewriter(model), rewriter.NewTableRewriter(nil), logger, metrics)

	ingest := usecase.NewIngestUseCase(st, chunker.NewParagraphChunker(cfg.Ingest.ChunkSize), cfg.Corpus, cfg.Ingest, invalidator, logger, metrics)

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		store:      st,
		llmEnabled: model != nil,
		ingest:     ingest,
		detect:     usecase.NewDetectUseCase(ret, fv, st, cfg.Corpus.SourceTag, cfg.Retrieve.TopK, logger, metrics),
		adapt:      usecase.NewAdaptUseCase(fr),
		seed:       usecase.NewSeedUseCase(st, ingest, cfg.Corpus.SourceTag),
	}, nil
}

func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.store.Close()
}

// openStore opens the corpus store selected by store.driver.
func openStore(ctx context.Context, cfg *config.Config, dir string, logger *zap.Logger) (port.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return memstore.NewMemoryStore(), nil

	case "sqlite":
		path := cfg.StorePath(dir)
		if err := config.EnsureStoreDir(path); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		st, err := store.OpenSQLStore(ctx, store.DialectSQLite, path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return st, nil

	case "postgres":
		st, err := store.OpenSQLStore(ctx, store.DialectPostgres, cfg.Store.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return st, nil

	case "bolt", "":
		path := cfg.StorePath(dir)
		if err := config.EnsureStoreDir(path); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		st, err := store.NewBoltStore(path, analyzer.NewTokenizer(), cfg.Retrieve.K1, cfg.Retrieve.B)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		if err := migrateBolt(st, cfg, logger); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func migrateBolt(st *store.BoltStore, cfg *config.Config, logger *zap.Logger) error {
	result, err := st.CheckMigration(cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}

	if result.NeedsRebuild {
		logger.Warn("corpus was built with different settings, clearing it",
			zap.String("reason", result.Reason))
		if err := st.Clear(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
	}
	if result.NeedsMigration || result.NeedsRebuild {
		if err := st.Migrate(cfg); err != nil {
			return fmt.Errorf("failed to migrate store: %w", err)
		}
	}
	return nil
}
