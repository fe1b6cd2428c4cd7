package markov

import (
	"errors"
	"io"
	"strings"
)

// Token is a single normalized unit of text: a lowercase word, a comma, or the
// sentence Delimiter.
type Token string

const (
	// Delimiter marks a sentence boundary in a token stream.
	Delimiter Token = "."
	// Comma is kept as its own token so the renderer can attach it to the previous word.
	Comma Token = ","
)

// IsDelimiter reports whether t is the sentence Delimiter.
func (t Token) IsDelimiter() bool { return t == Delimiter }

// IsComma reports whether t is a Comma.
func (t Token) IsComma() bool { return t == Comma }

// IsWord reports whether t is neither punctuation token.
func (t Token) IsWord() bool { return t != Delimiter && t != Comma && t != "" }

// Clause is one sentence (or, in line mode, one whole document) of tokens.
type Clause []Token

// String joins the clause with single spaces.
func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, t := range c {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}

// Prefix is the n-1 most recent tokens, used as the lookup key of a Bank.
type Prefix []Token

// hasSpace reports whether t contains a space and so cannot be part of a key.
func (t Token) hasSpace() bool { return strings.IndexByte(string(t), ' ') >= 0 }

// key returns the map key of a prefix. Build rejects tokens containing spaces,
// so keys of equal-length prefixes never collide.
func (p Prefix) key() string {
	switch len(p) {
	case 0:
		return ""
	case 1:
		return string(p[0])
	}
	n := len(p) - 1
	for _, t := range p {
		n += len(t)
	}
	var b strings.Builder
	b.Grow(n)
	for i, t := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(t))
	}
	return b.String()
}

func (p Prefix) String() string { return "(" + p.key() + ")" }

var (
	// ErrEmptyModel is returned when a Bank would contain no prefixes.
	ErrEmptyModel = errors.New("markov: empty model")
	// ErrNoValidSeed is reported when a Bank has no sentence-start prefix. Seeding
	// falls back to any prefix, so in that case callers only see it in logs. A
	// walk returns it when no seed led to a single word.
	ErrNoValidSeed = errors.New("markov: no sentence-start prefix")
	// ErrMalformedInput is returned when a corpus normalizes to zero tokens.
	ErrMalformedInput = errors.New("markov: corpus contains no tokens")
	// ErrInvalidOrder is returned for a model order below 2.
	ErrInvalidOrder = errors.New("markov: order must be at least 2")
	// ErrUnknownPrefix is returned when an explicit start prefix is not in the Bank.
	ErrUnknownPrefix = errors.New("markov: prefix not in bank")
	// ErrInvalidToken is returned by Build for a token containing a space.
	ErrInvalidToken = errors.New("markov: token contains a space")
)

// Tokenizer splits corpus text into clauses.
type Tokenizer interface {
	// NewStream returns a ClauseStream reading from r.
	NewStream(r io.Reader) ClauseStream
}

// ClauseStream yields clauses one at a time. Next returns io.EOF once the
// stream is exhausted.
type ClauseStream interface {
	Next() (Clause, error)
}

// TokenStream yields tokens one at a time. Next returns io.EOF once the
// stream is exhausted.
type TokenStream interface {
	Next() (Token, error)
}

// SentenceSplitter splits raw text into grammatical sentences.
type SentenceSplitter interface {
	Split(text string) []string
}
