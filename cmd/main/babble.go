package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/colloquy/pkg/markov"
	"github.com/urfave/cli/v3"
)

// babbleOptions are the settings of the babble command.
type babbleOptions struct {
	order       int
	minWords    int
	maxLength   int
	count       int
	interactive bool
	mode        string
	firstLine   int
	lastLine    int
	seed        uint64
	seeded      bool
	temperature float64
	topK        int
	properNouns []string
}

func babbleCmd(g *globalFlags) *cli.Command {
	var o babbleOptions

	return &cli.Command{
		Name:      "babble",
		Usage:     "Generate sentences from a single corpus",
		ArgsUsage: "<corpus file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "order",
				Aliases:     []string{"n"},
				Usage:       "model order",
				Value:       3,
				Destination: &o.order,
			},
			&cli.IntFlag{
				Name:        "min-words",
				Aliases:     []string{"w"},
				Usage:       "words to generate before a sentence may end",
				Value:       15,
				Destination: &o.minWords,
			},
			&cli.IntFlag{
				Name:        "max-length",
				Usage:       "cut sentences off after this many tokens, 0 for no limit",
				Destination: &o.maxLength,
			},
			&cli.IntFlag{
				Name:        "count",
				Usage:       "number of sentences, 0 runs until interrupted",
				Value:       1,
				Destination: &o.count,
			},
			&cli.BoolFlag{
				Name:        "interactive",
				Aliases:     []string{"i"},
				Usage:       "wait for Enter before every sentence after the first",
				Destination: &o.interactive,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "tokenizer mode (line, sentence)",
				Value:       markov.ModeLine.String(),
				Destination: &o.mode,
			},
			&cli.IntFlag{
				Name:        "first-line",
				Usage:       "first line of the corpus to read, 1-based",
				Destination: &o.firstLine,
			},
			&cli.IntFlag{
				Name:        "last-line",
				Usage:       "last line of the corpus to read, 0 reads to the end",
				Destination: &o.lastLine,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "random seed for reproducible output",
				Destination: &o.seed,
			},
			&cli.Float64Flag{
				Name:        "temperature",
				Usage:       "sampling temperature, 1 follows corpus frequencies",
				Value:       1.0,
				Destination: &o.temperature,
			},
			&cli.IntFlag{
				Name:        "top-k",
				Usage:       "sample only among the k most frequent successors, 0 disables",
				Destination: &o.topK,
			},
			&cli.StringSliceFlag{
				Name:        "proper-noun",
				Usage:       "word that is always capitalized, may be repeated",
				Destination: &o.properNouns,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("babble needs exactly one corpus file, got %d arguments", cmd.Args().Len())
			}
			e, err := g.setup()
			if err != nil {
				return err
			}
			o.seeded = cmd.IsSet("seed")
			return runBabble(ctx, cmd.Args().First(), o, e.logger, bufio.NewReader(cmd.Root().Reader), cmd.Root().Writer)
		},
	}
}

func runBabble(ctx context.Context, corpus string, o babbleOptions, logger *slog.Logger, r *bufio.Reader, w io.Writer) error {
	mode, err := markov.ParseMode(o.mode)
	if err != nil {
		return err
	}
	logger.Info("Reading corpus", slog.String("corpus", corpus), slog.String("mode", mode.String()))
	clauses, err := readCorpus(corpus, mode, o.firstLine, o.lastLine)
	if err != nil {
		return err
	}
	bank, err := markov.BuildSlice(clauses, o.order)
	if err != nil {
		return fmt.Errorf("corpus %s: %w", corpus, err)
	}
	logger.Info("Built bank", slog.Int("order", bank.N()), slog.Int("prefixes", bank.Len()))

	nouns := markov.PhilosophyNouns
	if len(o.properNouns) > 0 {
		nouns = make([]markov.Token, len(o.properNouns))
		for i, n := range o.properNouns {
			nouns[i] = markov.Token(n)
		}
	}
	renderer := markov.NewRenderer(markov.WithProperNouns(nouns...))

	var seed *uint64
	if o.seeded {
		seed = &o.seed
	}
	opts := generateOptions(&GenerationConfig{
		Temperature: o.temperature,
		TopK:        o.topK,
		MaxReseeds:  1000,
	}, newRand(seed, 0), logger)
	opts = append(opts, markov.WithMaxLength(o.maxLength))

	if o.interactive {
		_, _ = fmt.Fprintln(w, "Press enter for another sentence")
	}
	for i := 0; o.count <= 0 || i < o.count; i++ {
		if i > 0 && o.interactive {
			if err := waitForEnter(ctx, r); err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
		}

		stream, err := markov.GenerateStream(ctx, bank, o.minWords, opts...)
		if err != nil {
			return err
		}
		var tokens []markov.Token
		for tok := range stream {
			tokens = append(tokens, tok)
		}
		if ctx.Err() != nil {
			return nil
		}
		if _, err := fmt.Fprintln(w, renderer.Render(tokens)); err != nil {
			return err
		}
	}
	return nil
}
