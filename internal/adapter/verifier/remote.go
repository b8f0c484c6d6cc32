package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"greencheck/internal/domain"
	"greencheck/internal/port"
)

const MethodLLM = "llm"

// ErrParseFailure means the model answered but not with a verdict object.
var ErrParseFailure = errors.New("failed to parse verdict")

const systemPrompt = `You are a compliance analyst who reviews environmental marketing claims for greenwashing.
You compare every claim with the reference evidence you are given and answer with a single JSON object only.`

const userPromptTemplate = `Reference evidence from the company's sustainability reporting:
%s

Text to analyze: "%s"

Rules:
1. Identify specific phrases (not single words) from the text that make environmental claims.
2. Flag ONLY claims that the reference evidence does NOT substantiate.
3. Claims the evidence supports must not be flagged. List them under "supported_claims" with the supporting excerpt.
4. Every "phrase" must be copied exactly from the text.
5. Respond with exactly one JSON object and nothing else:
{
  "label": "high|medium|low",
  "justification": "overall explanation",
  "flagged_phrases": [
    {"phrase": "exact phrase", "risk_level": "high|medium|low", "justification": "why it is problematic", "suggestion": "how to improve it"}
  ],
  "supported_claims": [
    {"phrase": "exact phrase", "supporting_evidence": "excerpt from the reference evidence"}
  ],
  "pg_references": ["relevant excerpts from the reference evidence"]
}`

// RemoteVerifier asks a language model for a verdict.
type RemoteVerifier struct {
	llm port.LLM
}

func NewRemoteVerifier(llm port.LLM) *RemoteVerifier {
	return &RemoteVerifier{llm: llm}
}

func (v *RemoteVerifier) Method() string {
	return MethodLLM
}

// Available is false when no model client was configured.
func (v *RemoteVerifier) Available() bool {
	if v == nil || v.llm == nil {
		return false
	}
	if a, ok := v.llm.(port.Availability); ok {
		return a.Available()
	}
	return true
}

func (v *RemoteVerifier) Verify(ctx context.Context, text string, chunks []domain.Chunk) (domain.Verdict, error) {
	if !v.Available() {
		return domain.Verdict{}, &domain.RemoteVerifierError{Stage: "configure", Err: errors.New("no language model configured")}
	}

	raw, err := v.llm.GenerateWithSystem(ctx, systemPrompt, BuildPrompt(text, chunks))
	if err != nil {
		return domain.Verdict{}, &domain.RemoteVerifierError{Stage: "generate", Err: err}
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		return domain.Verdict{}, &domain.RemoteVerifierError{Stage: "parse", Err: err}
	}
	return GroundPhrases(verdict, text), nil
}

// GroundPhrases drops flagged and supported entries whose phrase is not an
// exact substring of text, and flagged entries the model also listed as
// supported. Later duplicates of a phrase are dropped too.
func GroundPhrases(v domain.Verdict, text string) domain.Verdict {
	inText := func(p string) bool {
		return p != "" && strings.Contains(text, p)
	}

	supported := make(map[string]bool, len(v.SupportedClaims))
	claims := make([]domain.SupportedClaim, 0, len(v.SupportedClaims))
	for _, c := range v.SupportedClaims {
		c.Phrase = strings.TrimSpace(c.Phrase)
		if !inText(c.Phrase) || supported[c.Phrase] {
			continue
		}
		supported[c.Phrase] = true
		claims = append(claims, c)
	}

	seen := make(map[string]bool, len(v.FlaggedPhrases))
	flagged := make([]domain.FlaggedPhrase, 0, len(v.FlaggedPhrases))
	for _, f := range v.FlaggedPhrases {
		f.Phrase = strings.TrimSpace(f.Phrase)
		if !inText(f.Phrase) || supported[f.Phrase] || seen[f.Phrase] {
			continue
		}
		seen[f.Phrase] = true
		flagged = append(flagged, f)
	}

	v.FlaggedPhrases = flagged
	v.SupportedClaims = claims
	return v
}

// BuildPrompt renders the user prompt for text against the given evidence.
func BuildPrompt(text string, chunks []domain.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	evidence := strings.Join(parts, "\n\n")
	if evidence == "" {
		evidence = "(no reference evidence available)"
	}
	return fmt.Sprintf(userPromptTemplate, evidence, text)
}

// ParseVerdict decodes a model answer into a verdict. Markdown code fences
// and prose around the object are tolerated; an unknown label is not.
func ParseVerdict(raw string) (domain.Verdict, error) {
	body := extractObject(stripFences(raw))
	if body == "" {
		return domain.Verdict{}, fmt.Errorf("%w: no JSON object in response", ErrParseFailure)
	}

	var verdict domain.Verdict
	if err := json.Unmarshal([]byte(body), &verdict); err != nil {
		return domain.Verdict{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	verdict.Label = domain.RiskLevel(strings.ToLower(strings.TrimSpace(string(verdict.Label))))
	if !verdict.Label.Valid() {
		return domain.Verdict{}, fmt.Errorf("%w: unknown label %q", ErrParseFailure, verdict.Label)
	}

	for i := range verdict.FlaggedPhrases {
		fp := &verdict.FlaggedPhrases[i]
		fp.RiskLevel = domain.RiskLevel(strings.ToLower(strings.TrimSpace(string(fp.RiskLevel))))
		if !fp.RiskLevel.Valid() {
			fp.RiskLevel = domain.RiskMedium
		}
	}

	return normalize(verdict), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// normalize replaces nil slices so verdicts always encode arrays.
func normalize(v domain.Verdict) domain.Verdict {
	if v.FlaggedPhrases == nil {
		v.FlaggedPhrases = []domain.FlaggedPhrase{}
	}
	if v.SupportedClaims == nil {
		v.SupportedClaims = []domain.SupportedClaim{}
	}
	if v.References == nil {
		v.References = []string{}
	}
	return v
}
