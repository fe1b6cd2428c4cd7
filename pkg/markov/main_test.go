package markov

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fishCorpus has one sentence per line so tests can use LineSplitter and get
// exactly two clauses.
const fishCorpus = "one fish two fish.\nred fish blue fish.\n"

// readTestClauses tokenizes text in sentence mode, one sentence per line.
func readTestClauses(t testing.TB, text string) []Clause {
	t.Helper()
	tokenizer := NewTokenizer(WithSentenceSplitter(LineSplitter{}))
	clauses, err := tokenizer.ReadClauses(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ReadClauses() error = %v", err)
	}
	return clauses
}

// newTestBank builds an order-n Bank from text, one sentence per line.
func newTestBank(t testing.TB, text string, n int) *Bank {
	t.Helper()
	b, err := BuildSlice(readTestClauses(t, text), n)
	if err != nil {
		t.Fatalf("BuildSlice() error = %v", err)
	}
	return b
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "this is a fallback corpus for benchmarking. it is not very long but will prevent a crash. "
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
