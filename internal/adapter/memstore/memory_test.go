package memstore

import (
	"context"
	"errors"
	"testing"

	"greencheck/internal/domain"
)

func seed(t *testing.T, s *MemoryStore, tag string, contents ...string) domain.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := s.PutDocument(ctx, domain.Document{SourceTag: tag, Name: "doc"})
	if err != nil {
		t.Fatal(err)
	}
	// insert out of order; reads must come back by index
	for i := len(contents) - 1; i >= 0; i-- {
		err := s.InsertChunk(ctx, domain.Chunk{ID: string(rune('a' + i)), DocumentID: doc.ID, SourceTag: tag, Index: i, Content: contents[i]})
		if err != nil {
			t.Fatal(err)
		}
	}
	return doc
}

func TestSearchFullTextRanking(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "T", "packaging once", "packaging packaging recycled", "water stewardship")

	got, err := s.SearchFullText(context.Background(), "T", "recycled packaging", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Index != 1 || got[1].Index != 0 {
		t.Errorf("order = %d,%d, want 1,0", got[0].Index, got[1].Index)
	}
}

func TestSearchSubstringAndSample(t *testing.T) {
	s := NewMemoryStore()
	seed(t, s, "T", "Solar panels", "WIND farms", "solar roofs")
	seed(t, s, "other", "solar elsewhere")
	ctx := context.Background()

	got, _ := s.SearchSubstring(ctx, "T", "SOLAR", 3)
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 2 {
		t.Errorf("SearchSubstring = %+v", got)
	}

	got, _ = s.SearchSubstring(ctx, "T", "solar", 1)
	if len(got) != 1 {
		t.Errorf("limit not applied: %d", len(got))
	}

	sample, _ := s.SampleChunks(ctx, "T", 2)
	if len(sample) != 2 || sample[0].Index != 0 {
		t.Errorf("SampleChunks = %+v", sample)
	}
}

func TestReplaceBySource(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seed(t, s, "T", "old one", "old two")

	if err := s.DeleteChunksBySource(ctx, "T"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteDocumentBySource(ctx, "T"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetDocumentBySource(ctx, "T"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n, _ := s.CountChunks(ctx, "T"); n != 0 {
		t.Errorf("CountChunks = %d", n)
	}
}

func TestFaultInjection(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	s.FailOn(OpSearchFullText, boom)
	if _, err := s.SearchFullText(ctx, "T", "x", 1); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	s.FailOn(OpSearchFullText, nil)
	if _, err := s.SearchFullText(ctx, "T", "x", 1); err != nil {
		t.Errorf("fault not cleared: %v", err)
	}
	if s.Calls(OpSearchFullText) != 2 {
		t.Errorf("Calls = %d", s.Calls(OpSearchFullText))
	}

	s.FailChunks(func(c domain.Chunk) error {
		if c.Index == 0 {
			return boom
		}
		return nil
	})
	if err := s.InsertChunk(ctx, domain.Chunk{SourceTag: "T", Index: 0}); !errors.Is(err, boom) {
		t.Errorf("chunk fault not applied: %v", err)
	}
	if err := s.InsertChunk(ctx, domain.Chunk{SourceTag: "T", Index: 1}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDetectionsNewestFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		if err := s.AppendDetection(ctx, domain.Detection{Text: text, Label: domain.RiskLow}); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := s.ListDetections(ctx, 2)
	if len(got) != 2 || got[0].Text != "third" || got[1].Text != "second" {
		t.Errorf("ListDetections = %+v", got)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Error("expected ID and CreatedAt to be assigned")
	}
}
