package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"greencheck/internal/domain"
)

type countingRetriever struct {
	calls   int
	results []domain.Chunk
	err     error
}

func (r *countingRetriever) Retrieve(ctx context.Context, query, sourceTag string, limit int) ([]domain.Chunk, error) {
	r.calls++
	return r.results, r.err
}

func TestCachedRetriever_Hit(t *testing.T) {
	inner := &countingRetriever{results: []domain.Chunk{{ID: "1", Content: "emissions"}}}
	r := NewCachedRetriever(inner, NewQueryCache(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := r.Retrieve(ctx, "emissions", "PG_AR_2024", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 chunk, got %d", len(got))
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}
}

func TestCachedRetriever_KeyIncludesTagAndLimit(t *testing.T) {
	inner := &countingRetriever{results: []domain.Chunk{{ID: "1"}}}
	r := NewCachedRetriever(inner, NewQueryCache(time.Minute))
	ctx := context.Background()

	r.Retrieve(ctx, "q", "A", 10)
	r.Retrieve(ctx, "q", "B", 10)
	r.Retrieve(ctx, "q", "A", 5)
	if inner.calls != 3 {
		t.Errorf("expected 3 distinct lookups, got %d", inner.calls)
	}
}

func TestCachedRetriever_Invalidate(t *testing.T) {
	inner := &countingRetriever{results: []domain.Chunk{{ID: "1"}}}
	qc := NewQueryCache(time.Minute)
	r := NewCachedRetriever(inner, qc)
	ctx := context.Background()

	r.Retrieve(ctx, "q", "A", 10)
	gen := qc.Generation()
	r.Invalidate()

	if qc.Size() != 0 {
		t.Errorf("expected empty cache, got %d entries", qc.Size())
	}
	if qc.Generation() != gen+1 {
		t.Errorf("expected generation to advance")
	}

	r.Retrieve(ctx, "q", "A", 10)
	if inner.calls != 2 {
		t.Errorf("expected a fresh lookup after invalidation, got %d calls", inner.calls)
	}
}

func TestCachedRetriever_StaleGenerationIgnored(t *testing.T) {
	qc := NewQueryCache(time.Minute)
	old := qc.Generation()
	qc.Invalidate()
	qc.Put(old, "A", "q", 10, []domain.Chunk{{ID: "stale"}})

	if _, hit := qc.Get(qc.Generation(), "A", "q", 10); hit {
		t.Error("result stored under an old generation must not be served")
	}
}

func TestCachedRetriever_ErrorsAndEmptyNotCached(t *testing.T) {
	inner := &countingRetriever{err: errors.New("store down")}
	r := NewCachedRetriever(inner, NewQueryCache(time.Minute))
	ctx := context.Background()

	if _, err := r.Retrieve(ctx, "q", "A", 10); err == nil {
		t.Fatal("expected error")
	}
	inner.err = nil
	r.Retrieve(ctx, "q", "A", 10)
	r.Retrieve(ctx, "q", "A", 10)
	if inner.calls != 3 {
		t.Errorf("errors and empty results should not be cached, got %d calls", inner.calls)
	}
}
