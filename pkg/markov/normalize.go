package markov

import (
	"regexp"
	"strings"
)

// Abbreviation rewrites a known abbreviation so its periods are not read as
// sentence boundaries. Pattern is matched against lowercased text.
type Abbreviation struct {
	Pattern     string
	Replacement string
}

// DefaultAbbreviations is the table used by NewNormalizer unless overridden.
var DefaultAbbreviations = []Abbreviation{
	{Pattern: `\bi\.\s?e\.`, Replacement: "ie"},
	{Pattern: `\be\.\s?g\.`, Replacement: "eg"},
	{Pattern: `\betc\.`, Replacement: "etc"},
	{Pattern: `\bl\.\s?c\.`, Replacement: " "},
	{Pattern: `(?:^|\s)p\.\s`, Replacement: " "},
	{Pattern: `(?:^|\s)ch\.\s`, Replacement: " "},
	{Pattern: `\b(mr|mrs|ms|dr|st|vs)\.`, Replacement: "$1"},
}

type abbreviation struct {
	re          *regexp.Regexp
	replacement string
}

// Normalizer turns raw text into canonical tokens: lowercase words, commas and
// the sentence Delimiter. It is safe for concurrent use.
type Normalizer struct {
	abbreviations  []abbreviation
	terminatorRe   *regexp.Regexp
	disallowedRe   *regexp.Regexp
	punctuationRe  *regexp.Regexp
	trimCharacters string
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithAbbreviations replaces the abbreviation table. Patterns are compiled
// immediately and panic if invalid, like regexp.MustCompile.
func WithAbbreviations(table []Abbreviation) NormalizerOption {
	return func(n *Normalizer) {
		n.abbreviations = compileAbbreviations(table)
	}
}

// WithAlphabet sets the regex matching runs of characters that are NOT part of
// the token alphabet. Matches are replaced with a single space.
// Default: `[^\p{L}\p{N}\-',.]+`
func WithAlphabet(disallowedRegex string) NormalizerOption {
	return func(n *Normalizer) {
		n.disallowedRe = regexp.MustCompile(disallowedRegex)
	}
}

// NewNormalizer creates a Normalizer with default settings, which can be
// overridden by providing one or more NormalizerOption functions.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		abbreviations: compileAbbreviations(DefaultAbbreviations),
		// Question and exclamation marks end sentences just like periods.
		terminatorRe:   regexp.MustCompile(`[!?]+`),
		disallowedRe:   regexp.MustCompile(`[^\p{L}\p{N}\-',.]+`),
		punctuationRe:  regexp.MustCompile(`[.,]`),
		trimCharacters: "-'",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func compileAbbreviations(table []Abbreviation) []abbreviation {
	out := make([]abbreviation, 0, len(table))
	for _, a := range table {
		out = append(out, abbreviation{re: regexp.MustCompile(a.Pattern), replacement: a.Replacement})
	}
	return out
}

var defaultNormalizer = NewNormalizer()

// Normalize cleans one line of raw text with the default Normalizer.
func Normalize(line string) []Token {
	return defaultNormalizer.Normalize(line)
}

// Normalize lowercases line, collapses abbreviations, strips characters outside
// the alphabet and splits the result into tokens. Periods, question marks and
// exclamation marks become the Delimiter. Runs of delimiters collapse to one and
// commas next to a boundary are dropped. It never fails; unknown characters are
// simply removed.
func (n *Normalizer) Normalize(line string) []Token {
	line = strings.ToLower(line)
	for _, a := range n.abbreviations {
		line = a.re.ReplaceAllString(line, a.replacement)
	}
	line = n.terminatorRe.ReplaceAllString(line, ".")
	line = n.disallowedRe.ReplaceAllString(line, " ")
	line = n.punctuationRe.ReplaceAllString(line, " $0 ")

	fields := strings.Fields(line)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if f != string(Delimiter) && f != string(Comma) {
			f = strings.Trim(f, n.trimCharacters)
			if f == "" {
				continue
			}
		}
		tokens = appendToken(tokens, Token(f))
	}
	// A comma cannot end a line.
	if len(tokens) > 0 && tokens[len(tokens)-1].IsComma() {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// appendToken appends t while keeping the punctuation invariants: no adjacent
// delimiters, no comma at the start, after a delimiter or after another comma,
// and a delimiter replaces a trailing comma.
func appendToken(tokens []Token, t Token) []Token {
	var last Token
	if len(tokens) > 0 {
		last = tokens[len(tokens)-1]
	}
	switch {
	case t.IsDelimiter():
		if last.IsComma() {
			tokens = tokens[:len(tokens)-1]
			if len(tokens) > 0 && tokens[len(tokens)-1].IsDelimiter() {
				return tokens
			}
		}
		if last.IsDelimiter() {
			return tokens
		}
	case t.IsComma():
		if len(tokens) == 0 || last.IsDelimiter() || last.IsComma() {
			return tokens
		}
	}
	return append(tokens, t)
}
