package rewriter

import (
	"context"
	"regexp"

	"greencheck/internal/domain"
)

const MethodLocal = "local_pattern"

const (
	pointsPerReplacement = 15
	maxScore             = 100
)

// Replacement swaps one vague claim for a specific one.
type Replacement struct {
	Term   string
	With   string
	Reason string
}

var DefaultReplacements = []Replacement{
	{"eco-friendly", "made with 30% recycled materials", "Replaced vague claim with specific measurable benefit"},
	{"100% natural", "made with plant-derived ingredients", "Clarified the meaning of 'natural' with specific source"},
	{"biodegradable", "breaks down in industrial composting facilities within 90 days", "Added specific timeframe and conditions for biodegradability"},
	{"chemical-free", "formulated without synthetic preservatives", "Replaced scientifically inaccurate term with specific exclusions"},
	{"planet-safe", "designed to minimize environmental impact", "Changed absolute claim to more accurate relative statement"},
	{"carbon-neutral", "certified carbon-neutral through verified offset programs", "Added verification and specificity to environmental claim"},
	{"greener future", "environmental improvements for future generations", "Replaced marketing language with clearer statement"},
	{"non-toxic", "meets EPA safety standards for household use", "Replaced absolute claim with specific regulatory compliance"},
}

type rule struct {
	Replacement
	pattern *regexp.Regexp
}

// TableRewriter applies a fixed replacement table, case-insensitive and on
// whole words only.
type TableRewriter struct {
	rules []rule
}

func NewTableRewriter(table []Replacement) *TableRewriter {
	if len(table) == 0 {
		table = DefaultReplacements
	}
	rules := make([]rule, 0, len(table))
	for _, r := range table {
		rules = append(rules, rule{
			Replacement: r,
			pattern:     regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(r.Term) + `\b`),
		})
	}
	return &TableRewriter{rules: rules}
}

func (r *TableRewriter) Method() string {
	return MethodLocal
}

func (r *TableRewriter) Rewrite(_ context.Context, text string) (domain.Adaptation, error) {
	after := text
	changes := []domain.Change{}
	replaced := 0

	for _, rl := range r.rules {
		matches := rl.pattern.FindAllStringIndex(after, -1)
		if len(matches) == 0 {
			continue
		}
		original := after[matches[0][0]:matches[0][1]]
		after = rl.pattern.ReplaceAllLiteralString(after, rl.With)
		replaced += len(matches)
		changes = append(changes, domain.Change{
			OriginalPhrase: original,
			NewPhrase:      rl.With,
			Reason:         rl.Reason,
		})
	}

	return domain.Adaptation{
		Before:           text,
		After:            after,
		Changes:          changes,
		ImprovementScore: min(maxScore, pointsPerReplacement*replaced),
		Method:           MethodLocal,
	}, nil
}
