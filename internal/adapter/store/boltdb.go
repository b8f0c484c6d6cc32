package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"greencheck/internal/adapter/analyzer"
	"greencheck/internal/domain"
)

// ErrNotFound is returned when no document exists for a source tag.
var ErrNotFound = domain.ErrNotFound

var (
	bucketDocuments    = []byte("documents")
	bucketChunks       = []byte("chunks")
	bucketSourceChunks = []byte("source_chunks")
	bucketTerms        = []byte("terms")
	bucketStats        = []byte("stats")
	bucketDetections   = []byte("detections")
)

// BoltStore keeps the reference corpus, a per-source inverted index and the
// detection audit log in a single bbolt file.
type BoltStore struct {
	db        *bbolt.DB
	tokenizer *analyzer.Tokenizer
	k1        float64
	b         float64
}

func NewBoltStore(path string, tokenizer *analyzer.Tokenizer, k1, b float64) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocuments, bucketChunks, bucketSourceChunks, bucketTerms, bucketStats, bucketDetections}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if tokenizer == nil {
		tokenizer = analyzer.NewTokenizer()
	}
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}

	return &BoltStore{db: db, tokenizer: tokenizer, k1: k1, b: b}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type documentRecord struct {
	ID         string                  `json:"id"`
	Name       string                  `json:"name"`
	Content    string                  `json:"content"`
	Metadata   domain.DocumentMetadata `json:"metadata"`
	PublicRead bool                    `json:"public_read"`
	CreatedAt  time.Time               `json:"created_at"`
}

type chunkRecord struct {
	DocumentID  string `json:"document_id"`
	SourceTag   string `json:"source_tag"`
	Index       int    `json:"index"`
	TotalChunks int    `json:"total_chunks"`
	Content     string `json:"content"`
	Length      int    `json:"length"`
}

func (r chunkRecord) toChunk(id string) domain.Chunk {
	return domain.Chunk{
		ID:          id,
		DocumentID:  r.DocumentID,
		SourceTag:   r.SourceTag,
		Index:       r.Index,
		TotalChunks: r.TotalChunks,
		Content:     r.Content,
	}
}

func statsKey(sourceTag string) []byte {
	return []byte("corpus:" + sourceTag)
}

// indexKey orders a source's chunks by position.
func indexKey(index int, id string) []byte {
	key := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(key, uint64(index))
	return append(key, id...)
}

func (s *BoltStore) PutDocument(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec := documentRecord{
			ID:         doc.ID,
			Name:       doc.Name,
			Content:    doc.Content,
			Metadata:   doc.Metadata,
			PublicRead: doc.PublicRead,
			CreatedAt:  doc.CreatedAt,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocuments).Put([]byte(doc.SourceTag), data)
	})
	if err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

func (s *BoltStore) GetDocumentBySource(ctx context.Context, sourceTag string) (domain.Document, error) {
	var doc domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(sourceTag))
		if data == nil {
			return fmt.Errorf("document for source %s: %w", sourceTag, ErrNotFound)
		}
		var rec documentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		doc = domain.Document{
			ID:         rec.ID,
			SourceTag:  sourceTag,
			Name:       rec.Name,
			Content:    rec.Content,
			Metadata:   rec.Metadata,
			PublicRead: rec.PublicRead,
			CreatedAt:  rec.CreatedAt,
		}
		return nil
	})
	return doc, err
}

func (s *BoltStore) DeleteDocumentBySource(ctx context.Context, sourceTag string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Delete([]byte(sourceTag))
	})
}

func (s *BoltStore) DeleteChunksBySource(ctx context.Context, sourceTag string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		tag := []byte(sourceTag)
		chunks := tx.Bucket(bucketChunks)

		if sb := tx.Bucket(bucketSourceChunks).Bucket(tag); sb != nil {
			err := sb.ForEach(func(k, v []byte) error {
				return chunks.Delete(v)
			})
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketSourceChunks).DeleteBucket(tag); err != nil {
				return err
			}
		}

		if tx.Bucket(bucketTerms).Bucket(tag) != nil {
			if err := tx.Bucket(bucketTerms).DeleteBucket(tag); err != nil {
				return err
			}
		}

		return tx.Bucket(bucketStats).Delete(statsKey(sourceTag))
	})
}

// InsertChunk stores the chunk and indexes its terms in the same transaction.
func (s *BoltStore) InsertChunk(ctx context.Context, chunk domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tf, length := s.tokenizer.TermFrequencies(chunk.Content)

	return s.db.Update(func(tx *bbolt.Tx) error {
		tag := []byte(chunk.SourceTag)

		rec := chunkRecord{
			DocumentID:  chunk.DocumentID,
			SourceTag:   chunk.SourceTag,
			Index:       chunk.Index,
			TotalChunks: chunk.TotalChunks,
			Content:     chunk.Content,
			Length:      length,
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketChunks).Put([]byte(chunk.ID), data); err != nil {
			return err
		}

		sb, err := tx.Bucket(bucketSourceChunks).CreateBucketIfNotExists(tag)
		if err != nil {
			return err
		}
		if err := sb.Put(indexKey(chunk.Index, chunk.ID), []byte(chunk.ID)); err != nil {
			return err
		}

		tb, err := tx.Bucket(bucketTerms).CreateBucketIfNotExists(tag)
		if err != nil {
			return err
		}
		for term, count := range tf {
			var postings []posting
			if existing := tb.Get([]byte(term)); existing != nil {
				if err := json.Unmarshal(existing, &postings); err != nil {
					return fmt.Errorf("failed to decode postings for %q: %w", term, err)
				}
			}
			postings = append(postings, posting{ChunkID: chunk.ID, TF: count})
			pdata, err := json.Marshal(postings)
			if err != nil {
				return err
			}
			if err := tb.Put([]byte(term), pdata); err != nil {
				return err
			}
		}

		statsBucket := tx.Bucket(bucketStats)
		var stats corpusStats
		if existing := statsBucket.Get(statsKey(chunk.SourceTag)); existing != nil {
			if err := json.Unmarshal(existing, &stats); err != nil {
				return err
			}
		}
		stats.Chunks++
		stats.TotalTokens += length
		sdata, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return statsBucket.Put(statsKey(chunk.SourceTag), sdata)
	})
}

// SearchFullText ranks the source's chunks with BM25 over the indexed terms.
func (s *BoltStore) SearchFullText(ctx context.Context, sourceTag, query string, limit int) ([]domain.Chunk, error) {
	terms := uniqueTerms(s.tokenizer.Tokenize(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var results []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		tb := tx.Bucket(bucketTerms).Bucket([]byte(sourceTag))
		if tb == nil {
			return nil
		}

		var stats corpusStats
		if data := tx.Bucket(bucketStats).Get(statsKey(sourceTag)); data != nil {
			if err := json.Unmarshal(data, &stats); err != nil {
				return err
			}
		}
		if stats.Chunks == 0 {
			return nil
		}
		avgDl := stats.avgLen()

		chunks := tx.Bucket(bucketChunks)
		records := make(map[string]chunkRecord)
		scores := make(map[string]float64)

		for _, term := range terms {
			data := tb.Get([]byte(term))
			if data == nil {
				continue
			}
			var postings []posting
			if err := json.Unmarshal(data, &postings); err != nil {
				return fmt.Errorf("failed to decode postings for %q: %w", term, err)
			}
			idf := bm25IDF(stats.Chunks, len(postings))

			for _, p := range postings {
				rec, ok := records[p.ChunkID]
				if !ok {
					raw := chunks.Get([]byte(p.ChunkID))
					if raw == nil {
						continue
					}
					if err := json.Unmarshal(raw, &rec); err != nil {
						return err
					}
					records[p.ChunkID] = rec
				}
				scores[p.ChunkID] += bm25Term(idf, p.TF, float64(rec.Length), avgDl, s.k1, s.b)
			}
		}

		scored := make([]scoredChunk, 0, len(scores))
		for id, score := range scores {
			scored = append(scored, scoredChunk{chunk: records[id].toChunk(id), score: score})
		}
		results = topScored(scored, limit)
		return nil
	})
	return results, err
}

// SearchSubstring scans the source's chunks in index order.
func (s *BoltStore) SearchSubstring(ctx context.Context, sourceTag, needle string, limit int) ([]domain.Chunk, error) {
	needle = strings.ToLower(needle)
	if needle == "" {
		return nil, nil
	}
	return s.scanSource(sourceTag, limit, func(content string) bool {
		return strings.Contains(strings.ToLower(content), needle)
	})
}

func (s *BoltStore) SampleChunks(ctx context.Context, sourceTag string, limit int) ([]domain.Chunk, error) {
	return s.scanSource(sourceTag, limit, func(string) bool { return true })
}

func (s *BoltStore) scanSource(sourceTag string, limit int, match func(content string) bool) ([]domain.Chunk, error) {
	var results []domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketSourceChunks).Bucket([]byte(sourceTag))
		if sb == nil {
			return nil
		}
		chunks := tx.Bucket(bucketChunks)

		c := sb.Cursor()
		for k, id := c.First(); k != nil; k, id = c.Next() {
			raw := chunks.Get(id)
			if raw == nil {
				continue
			}
			var rec chunkRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if !match(rec.Content) {
				continue
			}
			results = append(results, rec.toChunk(string(id)))
			if limit > 0 && len(results) >= limit {
				break
			}
		}
		return nil
	})
	return results, err
}

func (s *BoltStore) CountChunks(ctx context.Context, sourceTag string) (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		sb := tx.Bucket(bucketSourceChunks).Bucket([]byte(sourceTag))
		if sb == nil {
			return nil
		}
		count = sb.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) AppendDetection(ctx context.Context, d domain.Detection) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDetections)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(d)
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// ListDetections returns the newest detections first. A non-positive limit
// returns all of them.
func (s *BoltStore) ListDetections(ctx context.Context, limit int) ([]domain.Detection, error) {
	var detections []domain.Detection
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDetections).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var d domain.Detection
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			detections = append(detections, d)
			if limit > 0 && len(detections) >= limit {
				break
			}
		}
		return nil
	})
	return detections, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
