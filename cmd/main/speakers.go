package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/CTAG07/colloquy/pkg/dialogue"
	"github.com/CTAG07/colloquy/pkg/markov"
)

// readCorpus tokenizes a corpus file.
func readCorpus(path string, mode markov.Mode, firstLine, lastLine int) ([]markov.Clause, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	tokenizer := markov.NewTokenizer(markov.WithMode(mode), markov.WithLineRange(firstLine, lastLine))
	clauses, err := tokenizer.ReadClauses(f)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return clauses, nil
}

// newRand returns a PCG source seeded from seed, or randomly when seed is nil.
// stream separates the sequences of sources sharing one configured seed.
func newRand(seed *uint64, stream uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(*seed, stream))
}

// generateOptions translates the generation config into walk options.
func generateOptions(gen *GenerationConfig, rng *rand.Rand, logger *slog.Logger) []markov.GenerateOption {
	return []markov.GenerateOption{
		markov.WithRand(rng),
		markov.WithTemperature(gen.Temperature),
		markov.WithTopK(gen.TopK),
		markov.WithMaxReseeds(gen.MaxReseeds),
		markov.WithLogger(logger),
	}
}

// loadSpeakers reads every configured corpus and creates its Speaker. Each
// speaker gets its own random source.
func loadSpeakers(cfg *Config, logger *slog.Logger) ([]*dialogue.Speaker, error) {
	gen := cfg.Generation
	params := dialogue.Params{
		N:          gen.N,
		MinWords:   gen.MinWords,
		MinSize:    gen.MinSize,
		MinMatches: gen.MinMatches,
	}

	speakers := make([]*dialogue.Speaker, 0, len(cfg.Speakers))
	for i, sc := range cfg.Speakers {
		mode, err := markov.ParseMode(sc.Mode)
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", sc.Name, err)
		}
		clauses, err := readCorpus(sc.Corpus, mode, sc.FirstLine, sc.LastLine)
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", sc.Name, err)
		}
		speakerLogger := logger.With(slog.String("speaker", sc.Name))
		sp, err := dialogue.NewSpeaker(sc.Name, clauses, params,
			dialogue.WithGenerateOptions(generateOptions(gen, newRand(gen.Seed, uint64(i)), speakerLogger)...),
			dialogue.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded corpus",
			slog.String("speaker", sc.Name),
			slog.String("corpus", sc.Corpus),
			slog.String("mode", mode.String()),
			slog.Int("clauses", len(clauses)),
		)
		speakers = append(speakers, sp)
	}
	return speakers, nil
}

// properNouns collects the proper nouns of every speaker, lowercased by the
// Renderer.
func properNouns(cfg *Config) []markov.Token {
	nouns := append([]markov.Token(nil), markov.DefaultProperNouns...)
	for _, sc := range cfg.Speakers {
		for _, n := range sc.ProperNouns {
			nouns = append(nouns, markov.Token(n))
		}
	}
	return nouns
}
