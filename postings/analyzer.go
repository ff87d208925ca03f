package postings

import (
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// Analyzer turns raw text into index terms: Unicode-aware tokenization,
// lowercasing, stopword and length filtering, then Snowball stemming.
type Analyzer struct {
	minTokenLength int
	stemming       bool
	stopwords      map[string]struct{}
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithMinTokenLength drops tokens shorter than n runes. Default is 2.
func WithMinTokenLength(n int) AnalyzerOption {
	return func(a *Analyzer) {
		a.minTokenLength = n
	}
}

// WithStemming toggles Snowball stemming. Default is on.
func WithStemming(enabled bool) AnalyzerOption {
	return func(a *Analyzer) {
		a.stemming = enabled
	}
}

// WithStopwords replaces the built-in English stopword set. An empty set
// disables stopword filtering.
func WithStopwords(words []string) AnalyzerOption {
	return func(a *Analyzer) {
		a.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// NewAnalyzer creates an Analyzer with the given options.
func NewAnalyzer(opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		minTokenLength: 2,
		stemming:       true,
		stopwords:      englishStopwords,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze returns the index terms of text, in document order. Duplicates
// are kept; callers that only need term presence can dedupe afterwards.
func (a *Analyzer) Analyze(text string) []string {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	terms := tokens[:0]
	for _, token := range tokens {
		token = strings.ToLower(token)

		if len([]rune(token)) < a.minTokenLength {
			continue
		}
		if _, ok := a.stopwords[token]; ok {
			continue
		}
		if a.stemming {
			token = snowballeng.Stem(token, false)
		}

		terms = append(terms, token)
	}

	return terms
}

var englishStopwords = map[string]struct{}{
	"a": {}, "about": {}, "after": {}, "all": {}, "also": {}, "an": {},
	"and": {}, "any": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "between": {},
	"both": {}, "but": {}, "by": {}, "can": {}, "could": {}, "did": {},
	"do": {}, "does": {}, "down": {}, "during": {}, "each": {}, "few": {},
	"for": {}, "from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "here": {}, "hers": {}, "him": {}, "his": {},
	"how": {}, "if": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "just": {}, "more": {}, "most": {}, "my": {}, "no": {},
	"nor": {}, "not": {}, "now": {}, "of": {}, "off": {}, "on": {},
	"once": {}, "only": {}, "or": {}, "other": {}, "our": {}, "out": {},
	"over": {}, "own": {}, "same": {}, "she": {}, "should": {}, "so": {},
	"some": {}, "such": {}, "than": {}, "that": {}, "the": {}, "their": {},
	"them": {}, "then": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "those": {}, "through": {}, "to": {}, "too": {},
	"under": {}, "until": {}, "up": {}, "very": {}, "was": {}, "we": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"while": {}, "who": {}, "whom": {}, "why": {}, "will": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {},
}
