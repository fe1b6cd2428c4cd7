package dialogue

import (
	"strings"
	"testing"

	"github.com/CTAG07/colloquy/pkg/markov"
)

const (
	circusCorpus = `the elephant walked into the circus tent.
the trainer praised the elephant after the show.
the circus trainer fed every elephant twice.
we need lower taxes for every family.
taxes hurt every family in the country.
`
	politicsCorpus = `the country needs lower taxes and better schools.
every family deserves better schools.
the circus in washington must stop.
our elephant of a government grows every year.
`
)

// readTestClauses tokenizes text in sentence mode, one sentence per line.
func readTestClauses(t testing.TB, text string) []markov.Clause {
	t.Helper()
	tokenizer := markov.NewTokenizer(markov.WithSentenceSplitter(markov.LineSplitter{}))
	clauses, err := tokenizer.ReadClauses(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadClauses() error = %v", err)
	}
	return clauses
}

// newTestSpeaker creates a Speaker of order 2 that needs few words per utterance.
func newTestSpeaker(t testing.TB, name, text string, opts ...SpeakerOption) *Speaker {
	t.Helper()
	p := Params{N: 2, MinWords: 4, MinSize: 6, MinMatches: 2}
	s, err := NewSpeaker(name, readTestClauses(t, text), p, opts...)
	if err != nil {
		t.Fatalf("NewSpeaker() error = %v", err)
	}
	return s
}
