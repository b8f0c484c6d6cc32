package verifier

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"greencheck/internal/domain"
)

const MethodLocal = "local_pattern"

const (
	windowRadius      = 30
	evidenceLength    = 150
	minParagraphLen   = 15
	minWordLen        = 4
	supportThreshold  = 0.7
	highFlagThreshold = 3

	unvalidatedJustification = "claim could not be validated against the reference corpus"
	unvalidatedSuggestion    = "provide specific evidence or metrics"
)

// DefaultTerms is the ordered dictionary of generic environmental marketing
// terms. Compound terms come before the shorter terms they contain.
var DefaultTerms = []string{
	"100% natural",
	"eco-friendly",
	"environmentally friendly",
	"environmentally safe",
	"carbon neutral",
	"carbon-neutral",
	"climate positive",
	"net-zero",
	"zero plastic",
	"plant-based",
	"waste-free",
	"emission-free",
	"chemical-free",
	"toxin-free",
	"non-toxic",
	"planet-safe",
	"eco-safe",
	"greener future",
	"low carbon",
	"low-impact",
	"minimal impact",
	"biodegradable",
	"compostable",
	"sustainable",
	"sustainability",
	"renewable",
	"recycled",
	"organic",
	"natural",
	"green",
	"clean",
	"pure",
}

var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// LocalVerifier flags dictionary terms that the reference chunks do not
// mention. It performs no I/O and is deterministic for identical input.
type LocalVerifier struct {
	terms []string
}

func NewLocalVerifier(terms []string) *LocalVerifier {
	if len(terms) == 0 {
		terms = DefaultTerms
	}
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			lowered = append(lowered, t)
		}
	}
	return &LocalVerifier{terms: lowered}
}

func (v *LocalVerifier) Method() string {
	return MethodLocal
}

func (v *LocalVerifier) Available() bool {
	return true
}

func (v *LocalVerifier) Verify(_ context.Context, text string, chunks []domain.Chunk) (domain.Verdict, error) {
	return v.Analyze(text, chunks), nil
}

// Analyze runs the dictionary scan and the paragraph pass.
func (v *LocalVerifier) Analyze(text string, chunks []domain.Chunk) domain.Verdict {
	a := newAnalysis(text, chunks)

	lower := lowerSameOffsets(text)
	var matches []span
	for _, term := range v.terms {
		cursor := 0
		for cursor < len(lower) {
			idx := strings.Index(lower[cursor:], term)
			if idx < 0 {
				break
			}
			m := span{term: term, start: cursor + idx, end: cursor + idx + len(term)}
			cursor = m.end
			if !overlapsAny(matches, m.start, m.end) {
				matches = append(matches, m)
			}
		}
	}

	assignWindows(text, matches)
	for _, m := range matches {
		a.considerTerm(m)
	}

	for _, p := range paragraphs(text) {
		if overlapsAny(matches, p.start, p.end) {
			continue
		}
		a.considerParagraph(text[p.start:p.end])
	}

	return a.verdict()
}

// span is a byte range of the input. For term matches, phrase is the
// window reported for that occurrence.
type span struct {
	term       string
	start, end int
	phrase     string
}

func overlapsAny(spans []span, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// assignWindows gives each match the text up to windowRadius bytes either
// side, cut where it would reach into a neighbouring match's window. Every
// window holds exactly one match and no two windows share a byte.
func assignWindows(text string, matches []span) {
	order := make([]int, len(matches))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return matches[order[i]].start < matches[order[j]].start
	})

	for k, i := range order {
		m := &matches[i]
		left := clampStart(text, m.start-windowRadius)
		if k > 0 {
			prev := matches[order[k-1]]
			left = max(left, splitPoint(text, prev.end, m.start))
		}
		right := clampEnd(text, m.end+windowRadius)
		if k+1 < len(order) {
			next := matches[order[k+1]]
			right = min(right, splitPoint(text, m.end, next.start))
		}
		m.phrase = strings.TrimSpace(text[left:right])
	}
}

// splitPoint picks where the gap text[a:b] between two matches is divided:
// the whitespace nearest its middle, else the middle itself.
func splitPoint(text string, a, b int) int {
	mid := a + (b-a)/2
	best := -1
	for i := a; i < b; i++ {
		if isSpace(text[i]) && (best < 0 || distance(i, mid) < distance(best, mid)) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return max(a, clampStart(text, mid))
}

func distance(i, j int) int {
	if i > j {
		return i - j
	}
	return j - i
}

// paragraphs returns the trimmed byte ranges of the blank-line separated
// blocks of text.
func paragraphs(text string) []span {
	var out []span
	add := func(start, end int) {
		for start < end && isSpace(text[start]) {
			start++
		}
		for end > start && isSpace(text[end-1]) {
			end--
		}
		if end > start {
			out = append(out, span{start: start, end: end})
		}
	}

	prev := 0
	for _, sep := range paragraphSplit.FindAllStringIndex(text, -1) {
		add(prev, sep[0])
		prev = sep[1]
	}
	add(prev, len(text))
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

type analysis struct {
	text     string
	chunks   []domain.Chunk
	lowered  []string
	combined string

	accepted  []string
	flagged   []domain.FlaggedPhrase
	supported []domain.SupportedClaim
	evidence  []int
	used      map[int]bool
}

func newAnalysis(text string, chunks []domain.Chunk) *analysis {
	lowered := make([]string, len(chunks))
	for i, c := range chunks {
		lowered[i] = strings.ToLower(c.Content)
	}
	return &analysis{
		text:     text,
		chunks:   chunks,
		lowered:  lowered,
		combined: strings.Join(lowered, " "),
		used:     make(map[int]bool),
	}
}

// overlaps reports whether candidate contains, or is contained by, any
// accepted phrase. Comparison ignores case.
func (a *analysis) overlaps(candidate string) bool {
	c := strings.ToLower(candidate)
	for _, p := range a.accepted {
		if strings.Contains(p, c) || strings.Contains(c, p) {
			return true
		}
	}
	return false
}

func (a *analysis) accept(phrase string) {
	a.accepted = append(a.accepted, strings.ToLower(phrase))
}

func (a *analysis) considerTerm(m span) {
	if m.phrase == "" || a.overlaps(m.phrase) {
		return
	}
	a.accept(m.phrase)

	for i, content := range a.lowered {
		if strings.Contains(content, m.term) {
			a.supported = append(a.supported, domain.SupportedClaim{
				Phrase:             m.phrase,
				SupportingEvidence: a.cite(i),
			})
			return
		}
	}

	a.flagged = append(a.flagged, domain.FlaggedPhrase{
		Phrase:        m.phrase,
		RiskLevel:     domain.RiskMedium,
		Justification: unvalidatedJustification,
		Suggestion:    unvalidatedSuggestion,
	})
}

func (a *analysis) considerParagraph(paragraph string) {
	if len([]rune(paragraph)) <= minParagraphLen || len(a.chunks) == 0 {
		return
	}
	if a.overlaps(paragraph) {
		return
	}

	words := significantWords(paragraph)
	if len(words) == 0 {
		return
	}

	present := 0
	for _, w := range words {
		if strings.Contains(a.combined, w) {
			present++
		}
	}
	if float64(present)/float64(len(words)) < supportThreshold {
		return
	}

	best, bestCount := -1, 0
	for i, content := range a.lowered {
		count := 0
		for _, w := range words {
			if strings.Contains(content, w) {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return
	}

	a.accept(paragraph)
	a.supported = append(a.supported, domain.SupportedClaim{
		Phrase:             paragraph,
		SupportingEvidence: a.cite(best),
	})
}

// cite returns the evidence excerpt for chunk i and records it as a reference.
func (a *analysis) cite(i int) string {
	if !a.used[i] {
		a.used[i] = true
		a.evidence = append(a.evidence, i)
	}
	return excerpt(a.chunks[i].Content)
}

func (a *analysis) verdict() domain.Verdict {
	label := domain.RiskLow
	switch {
	case len(a.flagged) > highFlagThreshold:
		label = domain.RiskHigh
	case len(a.flagged) > 0:
		label = domain.RiskMedium
	}

	refs := make([]string, 0, len(a.evidence))
	seen := make(map[string]bool, len(a.evidence))
	for _, i := range a.evidence {
		ref := excerpt(a.chunks[i].Content)
		if seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	return normalize(domain.Verdict{
		Label:           label,
		Justification:   localJustification(len(a.flagged), len(a.supported)),
		FlaggedPhrases:  a.flagged,
		SupportedClaims: a.supported,
		References:      refs,
	})
}

func localJustification(flagged, supported int) string {
	switch {
	case flagged == 0 && supported == 0:
		return "No generic environmental claims were found."
	case flagged == 0:
		return "All environmental claims found are mentioned in the reference corpus."
	default:
		return "Some environmental claims could not be matched to the reference corpus."
	}
}

func significantWords(paragraph string) []string {
	fields := strings.FieldsFunc(strings.ToLower(paragraph), func(r rune) bool {
		return unicode.IsSpace(r)
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len([]rune(w)) > minWordLen {
			words = append(words, w)
		}
	}
	return words
}

// lowerSameOffsets lowercases text without changing any byte offset, so
// match positions index the original text.
func lowerSameOffsets(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		l := unicode.ToLower(r)
		if r == utf8.RuneError || utf8.RuneLen(l) != size {
			b.WriteString(text[i : i+size])
		} else {
			b.WriteRune(l)
		}
		i += size
	}
	return b.String()
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= evidenceLength {
		return s
	}
	return string(r[:evidenceLength])
}

// clampStart and clampEnd keep window bounds inside text and off the middle
// of a multi-byte rune.
func clampStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func clampEnd(text string, i int) int {
	if i >= len(text) {
		return len(text)
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}
