package rewriter

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

var ErrParseFailure = errors.New("failed to parse rewrite")

const rewritePrompt = `Rewrite this marketing text to remove greenwashing while maintaining impact. Follow these guidelines:

1. Replace vague terms with specific, measurable claims
2. Remove unsubstantiated environmental claims
3. Focus on concrete benefits and actions
4. Maintain persuasive tone without misleading language

Original text: "%s"

Respond with exactly one JSON object:
{
  "before": "original text",
  "after": "rewritten text",
  "changes": [
    {"original_phrase": "phrase that was changed", "new_phrase": "replacement phrase", "reason": "why the change was made"}
  ],
  "improvement_score": 85
}`

// LLMRewriter asks a language model to rewrite the text.
type LLMRewriter struct {
	llm port.LLM
}

func NewLLMRewriter(llm port.LLM) *LLMRewriter {
	return &LLMRewriter{llm: llm}
}

func (r *LLMRewriter) Method() string {
	return MethodLLM
}

func (r *LLMRewriter) Available() bool {
	if r == nil || r.llm == nil {
		return false
	}
	if a, ok := r.llm.(port.Availability); ok {
		return a.Available()
	}
	return true
}

func (r *LLMRewriter) Rewrite(ctx context.Context, text string) (domain.Adaptation, error) {
	if !r.Available() {
		return domain.Adaptation{}, errors.New("no language model configured")
	}

	raw, err := r.llm.Generate(ctx, fmt.Sprintf(rewritePrompt, text))
	if err != nil {
		return domain.Adaptation{}, fmt.Errorf("failed to generate rewrite: %w", err)
	}

	adaptation, err := ParseAdaptation(raw)
	if err != nil {
		return domain.Adaptation{}, err
	}
	adaptation.Before = text
	adaptation.Method = MethodLLM
	return adaptation, nil
}

// ParseAdaptation decodes the model's rewrite object.
func ParseAdaptation(raw string) (domain.Adaptation, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return domain.Adaptation{}, fmt.Errorf("%w: no JSON object in response", ErrParseFailure)
	}

	var a domain.Adaptation
	if err := json.Unmarshal([]byte(s[start:end+1]), &a); err != nil {
		return domain.Adaptation{}, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}
	if strings.TrimSpace(a.After) == "" {
		return domain.Adaptation{}, fmt.Errorf("%w: empty rewritten text", ErrParseFailure)
	}
	if a.Changes == nil {
		a.Changes = []domain.Change{}
	}
	a.ImprovementScore = max(0, min(maxScore, a.ImprovementScore))
	return a, nil
}
