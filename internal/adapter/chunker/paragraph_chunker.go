package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"greencheck/internal/domain"
)

// DefaultTargetSize favors context completeness over retrieval precision.
const DefaultTargetSize = 1500

const paragraphSep = "\n\n"

var (
	blankLineRe   = regexp.MustCompile(`(?m)^[ \t\f\v]+$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(` {2,}`)
	sentenceEndRe = regexp.MustCompile(`[.!?]\s+`)
)

// ParagraphChunker splits report text into chunks of at most targetSize
// characters, keeping paragraphs whole where possible and falling back to
// sentence boundaries for oversized paragraphs.
type ParagraphChunker struct {
	targetSize int
}

func NewParagraphChunker(targetSize int) *ParagraphChunker {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	return &ParagraphChunker{targetSize: targetSize}
}

func (c *ParagraphChunker) TargetSize() int {
	return c.targetSize
}

// Chunk splits content and stamps each piece with the document's identity.
func (c *ParagraphChunker) Chunk(doc domain.Document, content string) []domain.Chunk {
	parts := c.Split(content)
	if len(parts) == 0 {
		return nil
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, text := range parts {
		chunks[i] = domain.Chunk{
			ID:          generateChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			SourceTag:   doc.SourceTag,
			Index:       i,
			TotalChunks: len(parts),
			Content:     text,
		}
	}
	return chunks
}

// Split returns the chunks of text in document order. Joining consecutive
// chunks with the whitespace that separated them in Normalize(text)
// reproduces the normalized text exactly.
func (c *ParagraphChunker) Split(text string) []string {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	for _, para := range strings.Split(normalized, paragraphSep) {
		paraLen := utf8.RuneCountInString(para)
		if buf.Len() > 0 && bufLen+len(paragraphSep)+paraLen > c.targetSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		if buf.Len() > 0 {
			buf.WriteString(paragraphSep)
			bufLen += len(paragraphSep)
		}
		buf.WriteString(para)
		bufLen += paraLen
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}

	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > c.targetSize {
			out = append(out, c.splitSentences(chunk)...)
			continue
		}
		out = append(out, chunk)
	}
	return out
}

// splitSentences greedily groups sentences of text. Pieces are slices of
// text, so separators inside a piece are kept verbatim and the whitespace
// between pieces is the only thing dropped.
func (c *ParagraphChunker) splitSentences(text string) []string {
	type span struct{ start, end int }

	var sentences []span
	start := 0
	for _, m := range sentenceEndRe.FindAllStringIndex(text, -1) {
		sentences = append(sentences, span{start, m[0] + 1})
		start = m[1]
	}
	if start < len(text) {
		sentences = append(sentences, span{start, len(text)})
	}

	var pieces []string
	pieceStart, pieceEnd := -1, -1
	for _, s := range sentences {
		if pieceStart >= 0 && utf8.RuneCountInString(text[pieceStart:s.end]) > c.targetSize {
			pieces = append(pieces, text[pieceStart:pieceEnd])
			pieceStart = -1
		}
		if pieceStart < 0 {
			pieceStart = s.start
		}
		pieceEnd = s.end
	}
	if pieceStart >= 0 {
		pieces = append(pieces, text[pieceStart:pieceEnd])
	}
	return pieces
}

// Normalize unifies line endings, empties whitespace-only lines, collapses
// blank-line runs to a single blank line and space runs to one space, and
// trims the ends.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankLineRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, paragraphSep)
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func generateChunkID(docID string, index int) string {
	data := fmt.Sprintf("%s:%d", docID, index)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
