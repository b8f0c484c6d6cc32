package store

import (
	"math"
	"sort"

	"greencheck/internal/domain"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type posting struct {
	ChunkID string `json:"chunk_id"`
	TF      int    `json:"tf"`
}

type corpusStats struct {
	Chunks      int `json:"chunks"`
	TotalTokens int `json:"total_tokens"`
}

func (s corpusStats) avgLen() float64 {
	if s.Chunks == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.Chunks)
}

func bm25IDF(n, df int) float64 {
	N := float64(n)
	d := float64(df)
	return math.Log((N-d+0.5)/(d+0.5) + 1)
}

func bm25Term(idf float64, tf int, dl, avgDl, k1, b float64) float64 {
	if avgDl == 0 {
		avgDl = 1
	}
	f := float64(tf)
	return idf * (f * (k1 + 1)) / (f + k1*(1-b+b*dl/avgDl))
}

type scoredChunk struct {
	chunk domain.Chunk
	score float64
}

// topScored orders by score, breaking ties by chunk index so repeated
// searches return the same order.
func topScored(scored []scoredChunk, limit int) []domain.Chunk {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].chunk.Index < scored[j].chunk.Index
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]domain.Chunk, len(scored))
	for i, sc := range scored {
		out[i] = sc.chunk
	}
	return out
}
