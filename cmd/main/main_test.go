package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

const (
	testCorpusA = `The elephant walked into the circus tent. The trainer praised the elephant after the show.
The circus trainer fed every elephant twice. We need lower taxes for every family.
Taxes hurt every family in the country.
`
	testCorpusB = `The country needs lower taxes and better schools. Every family deserves better schools.
The circus in Washington must stop. Our elephant of a government grows every year.
`
)

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestFile writes content to name inside a temp dir and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// testConfig returns a config with two speakers over temp corpora and a fixed seed.
func testConfig(t *testing.T) *Config {
	t.Helper()
	seed := uint64(3)
	cfg := DefaultConfig()
	cfg.Generation.N = 2
	cfg.Generation.MinWords = 4
	cfg.Generation.Seed = &seed
	cfg.Speakers = []*SpeakerConfig{
		{Name: "Clown", Corpus: writeTestFile(t, "a.txt", testCorpusA), Mode: "sentence"},
		{Name: "Senator", Corpus: writeTestFile(t, "b.txt", testCorpusB), Mode: "sentence", ProperNouns: []string{"washington"}},
	}
	cfg.Transcript.DatabasePath = filepath.Join(t.TempDir(), "data", "transcripts.db")
	return cfg
}
