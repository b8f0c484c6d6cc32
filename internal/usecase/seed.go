package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"greencheck/internal/domain"
	"greencheck/internal/port"
)

//go:embed seed/annual_report_2024.txt
var seedReport string

const seedFilename = "annual_report_2024.txt"

const (
	SeedStatusSeeded  = "seeded"
	SeedStatusPresent = "already_seeded"
)

type SeedResult struct {
	Status        string `json:"status"`
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created,omitempty"`
}

// SeedUseCase loads the bundled reference report when the corpus is empty.
type SeedUseCase struct {
	store     port.CorpusStore
	ingest    *IngestUseCase
	sourceTag string
}

func NewSeedUseCase(store port.CorpusStore, ingest *IngestUseCase, sourceTag string) *SeedUseCase {
	return &SeedUseCase{store: store, ingest: ingest, sourceTag: sourceTag}
}

// SeedReport returns the bundled reference report text.
func SeedReport() string {
	return seedReport
}

func (u *SeedUseCase) Seed(ctx context.Context) (SeedResult, error) {
	existing, err := u.store.GetDocumentBySource(ctx, u.sourceTag)
	switch {
	case err == nil:
		return SeedResult{Status: SeedStatusPresent, DocumentID: existing.ID}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return SeedResult{}, fmt.Errorf("failed to check existing corpus: %w", err)
	}

	res, err := u.ingest.Ingest(ctx, seedReport, seedFilename, u.sourceTag)
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{
		Status:        SeedStatusSeeded,
		DocumentID:    res.DocumentID,
		ChunksCreated: res.ChunksCreated,
	}, nil
}
