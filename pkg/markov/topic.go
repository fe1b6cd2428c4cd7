package markov

import (
	"iter"
	"sort"
	"strings"
	"unicode/utf8"
)

// Topic is a set of salient tokens used to pick clauses related to a subject.
type Topic map[Token]struct{}

// NewTopic returns a Topic holding tokens.
func NewTopic(tokens ...Token) Topic {
	t := make(Topic, len(tokens))
	for _, tok := range tokens {
		t[tok] = struct{}{}
	}
	return t
}

// SalientWords returns the words of tokens longer than longerThan runes.
// Punctuation tokens are never salient.
func SalientWords(tokens []Token, longerThan int) Topic {
	t := make(Topic)
	for _, tok := range tokens {
		if tok.IsWord() && utf8.RuneCountInString(string(tok)) > longerThan {
			t[tok] = struct{}{}
		}
	}
	return t
}

// Len returns the number of words in the topic.
func (t Topic) Len() int { return len(t) }

// Contains reports whether tok is part of the topic.
func (t Topic) Contains(tok Token) bool {
	_, ok := t[tok]
	return ok
}

// Words returns the topic's words in sorted order.
func (t Topic) Words() []Token {
	words := make([]Token, 0, len(t))
	for tok := range t {
		words = append(words, tok)
	}
	sort.Slice(words, func(i, j int) bool { return words[i] < words[j] })
	return words
}

// String returns the sorted words separated by spaces.
func (t Topic) String() string {
	words := t.Words()
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = string(w)
	}
	return strings.Join(parts, " ")
}

// Relevant reports whether clause shares at least minMatches distinct words of
// at least minSize runes with topic. With minMatches <= 0 every clause is
// relevant.
func Relevant(clause Clause, topic Topic, minMatches, minSize int) bool {
	if minMatches <= 0 {
		return true
	}
	seen := make(map[Token]struct{})
	for _, tok := range clause {
		if _, dup := seen[tok]; dup {
			continue
		}
		if !tok.IsWord() || utf8.RuneCountInString(string(tok)) < minSize {
			continue
		}
		if _, ok := topic[tok]; ok {
			seen[tok] = struct{}{}
			if len(seen) >= minMatches {
				return true
			}
		}
	}
	return false
}

// FilterByTopic lazily yields the clauses that are Relevant to topic, in their
// original order.
func FilterByTopic(clauses iter.Seq[Clause], topic Topic, minMatches, minSize int) iter.Seq[Clause] {
	return func(yield func(Clause) bool) {
		for clause := range clauses {
			if Relevant(clause, topic, minMatches, minSize) && !yield(clause) {
				return
			}
		}
	}
}
