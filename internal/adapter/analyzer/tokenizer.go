package analyzer

import (
	"strings"
	"unicode"
)

// stopwordList holds function words that carry no weight when ranking
// report passages. Grouped loosely: articles and prepositions, pronouns,
// auxiliaries, question words, quantifiers.
const stopwordList = `
a an the of in on at to by for from with as into than
i we our you your he she his her it its they their this that
is are was were be been being has have had do does did will would
can could should may might must shall not no but and or if so
which who whom what when where why how
all each every both few more most other some such too very just also
`

var stopwords = func() map[string]struct{} {
	fields := strings.Fields(stopwordList)
	m := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether the lowercase word is ignored by Tokenize.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}

// Tokenizer turns report prose into lowercase index terms. Words shorter
// than two runes and stopwords are dropped.
type Tokenizer struct {
	minLen int
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{minLen: 2}
}

func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := words[:0]
	for _, w := range words {
		w = strings.ToLower(w)
		if len([]rune(w)) < t.minLen || IsStopword(w) {
			continue
		}
		tokens = append(tokens, w)
	}
	return tokens
}

// TermFrequencies counts each token of text and returns the token total,
// which BM25 uses as the document length.
func (t *Tokenizer) TermFrequencies(text string) (map[string]int, int) {
	tokens := t.Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf, len(tokens)
}

// Keywords returns up to max distinct lowercase words of at least minLen
// characters, in order of first appearance. Stopwords are kept.
func Keywords(text string, minLen, max int) []string {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, w := range splitWords(text) {
		w = strings.ToLower(w)
		if len([]rune(w)) < minLen {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == max {
			break
		}
	}
	return out
}

// splitWords breaks text on anything that is not a letter or digit, so
// "eco-friendly" and "eco_friendly" both yield two words.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
