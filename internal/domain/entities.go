package domain

import "time"

// Document is the current reference corpus for one source tag.
type Document struct {
	ID         string
	SourceTag  string
	Name       string
	Content    string
	Metadata   DocumentMetadata
	PublicRead bool
	CreatedAt  time.Time
}

type DocumentMetadata struct {
	Source      string    `json:"source"`
	Year        int       `json:"year,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Chunk is a contiguous slice of a document's text. Chunks are written once
// during ingestion and removed together with their document.
type Chunk struct {
	ID          string
	DocumentID  string
	SourceTag   string
	Index       int
	TotalChunks int
	Content     string
}

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// Valid reports whether r is one of the three known levels.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskHigh, RiskMedium, RiskLow:
		return true
	}
	return false
}

// Score maps a label to its fixed display score.
func (r RiskLevel) Score() int {
	switch r {
	case RiskHigh:
		return 85
	case RiskMedium:
		return 50
	case RiskLow:
		return 20
	}
	return 0
}

type FlaggedPhrase struct {
	Phrase        string    `json:"phrase"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Justification string    `json:"justification"`
	Suggestion    string    `json:"suggestion"`
}

type SupportedClaim struct {
	Phrase             string `json:"phrase"`
	SupportingEvidence string `json:"supporting_evidence"`
}

// Verdict is the outcome of one verification run.
type Verdict struct {
	Label           RiskLevel        `json:"label"`
	Justification   string           `json:"justification"`
	FlaggedPhrases  []FlaggedPhrase  `json:"flagged_phrases"`
	SupportedClaims []SupportedClaim `json:"supported_claims"`
	References      []string         `json:"pg_references"`
}

// Detection is one append-only audit record of a verification.
type Detection struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Label     RiskLevel `json:"label"`
	Method    string    `json:"analysis_method"`
	Result    Verdict   `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

type IngestResult struct {
	DocumentID     string `json:"document_id"`
	ChunksCreated  int    `json:"chunks_created"`
	ChunksProduced int    `json:"chunks_produced"`
	ContentLength  int    `json:"content_length"`
	Filename       string `json:"filename"`
}

type Change struct {
	OriginalPhrase string `json:"original_phrase"`
	NewPhrase      string `json:"new_phrase"`
	Reason         string `json:"reason"`
}

// Adaptation is a rewrite of marketing text with vague claims replaced.
type Adaptation struct {
	Before           string   `json:"before"`
	After            string   `json:"after"`
	Changes          []Change `json:"changes"`
	ImprovementScore int      `json:"improvement_score"`
	Method           string   `json:"analysis_method,omitempty"`
	Error            string   `json:"error,omitempty"`
}

type CorpusStats struct {
	SourceTag   string
	DocumentID  string
	Chunks      int
	ContentHash string
	Detections  int
}
