package markov

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultProperNouns is the proper-noun set used by NewRenderer.
	DefaultProperNouns = []Token{"i"}
	// PhilosophyNouns suits the classical philosophy corpora the babble
	// command was first written for.
	PhilosophyNouns = []Token{"aristotle", "plato", "i", "m", "c", "greek", "bourgeois", "bourgoisie"}
)

// Renderer turns a token sequence back into punctuated prose. It holds only
// configuration and is safe for concurrent use.
type Renderer struct {
	properNouns map[Token]struct{}
}

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithProperNouns replaces the set of tokens that are always capitalized.
func WithProperNouns(nouns ...Token) RenderOption {
	return func(r *Renderer) {
		r.properNouns = make(map[Token]struct{}, len(nouns))
		for _, n := range nouns {
			r.properNouns[Token(strings.ToLower(string(n)))] = struct{}{}
		}
	}
}

// NewRenderer creates a Renderer with default settings, which can be
// overridden by providing one or more RenderOption functions.
func NewRenderer(opts ...RenderOption) *Renderer {
	r := &Renderer{}
	WithProperNouns(DefaultProperNouns...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type renderKind int

const (
	renderNone renderKind = iota
	renderWord
	renderComma
	renderDelimiter
)

// Render joins tokens into text. The first word of every sentence and every
// proper noun is capitalized, commas attach to the preceding word, and each
// Delimiter ends a sentence with a period. The result always ends with a
// period unless tokens contain no words at all, in which case it is empty.
func (r *Renderer) Render(tokens []Token) string {
	out := make([]byte, 0, len(tokens)*6)
	last := renderNone
	capitalizeNext := true

	for _, tok := range tokens {
		switch {
		case tok == "":
			continue
		case tok.IsDelimiter():
			if last == renderComma {
				out = out[:len(out)-1]
				last = renderWord
			}
			if last == renderWord {
				out = append(out, '.')
				last = renderDelimiter
			}
			capitalizeNext = true
		case tok.IsComma():
			if last == renderWord {
				out = append(out, ',')
				last = renderComma
			}
		default:
			if last != renderNone {
				out = append(out, ' ')
			}
			if capitalizeNext || r.isProperNoun(tok) {
				out = appendCapitalized(out, string(tok))
			} else {
				out = append(out, string(tok)...)
			}
			capitalizeNext = false
			last = renderWord
		}
	}

	if last == renderComma {
		out = out[:len(out)-1]
		last = renderWord
	}
	if last == renderWord {
		out = append(out, '.')
	}
	return string(out)
}

// isProperNoun matches the token itself or, for contractions and possessives
// such as "i'm" or "plato's", the part before the apostrophe.
func (r *Renderer) isProperNoun(tok Token) bool {
	if _, ok := r.properNouns[tok]; ok {
		return true
	}
	if before, _, found := strings.Cut(string(tok), "'"); found {
		_, ok := r.properNouns[Token(before)]
		return ok
	}
	return false
}

func appendCapitalized(out []byte, word string) []byte {
	first, size := utf8.DecodeRuneInString(word)
	if first == utf8.RuneError {
		return append(out, word...)
	}
	out = utf8.AppendRune(out, unicode.ToUpper(first))
	return append(out, word[size:]...)
}
