package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/colloquy/pkg/markov"
	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"
)

// bankOptions are the settings of the bank command.
type bankOptions struct {
	order     int
	mode      string
	firstLine int
	lastLine  int
	prune     int
	export    string
}

func bankCmd(g *globalFlags) *cli.Command {
	var o bankOptions

	return &cli.Command{
		Name:      "bank",
		Usage:     "Build the n-gram bank of a corpus and report on it",
		ArgsUsage: "<corpus file>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "order",
				Aliases:     []string{"n"},
				Usage:       "model order",
				Value:       3,
				Destination: &o.order,
			},
			&cli.StringFlag{
				Name:        "mode",
				Usage:       "tokenizer mode (sentence, line)",
				Value:       markov.ModeSentence.String(),
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
			&cli.IntFlag{
				Name:        "prune",
				Usage:       "drop links seen this many times or fewer",
				Destination: &o.prune,
			},
			&cli.StringFlag{
				Name:        "export",
				Usage:       "write the bank as JSON to this file, - for stdout",
				Destination: &o.export,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("bank needs exactly one corpus file, got %d arguments", cmd.Args().Len())
			}
			e, err := g.setup()
			if err != nil {
				return err
			}
			return runBank(cmd.Args().First(), o, e.logger, cmd.Root().Writer)
		},
	}
}

func runBank(corpus string, o bankOptions, logger *slog.Logger, w io.Writer) error {
	mode, err := markov.ParseMode(o.mode)
	if err != nil {
		return err
	}
	clauses, err := readCorpus(corpus, mode, o.firstLine, o.lastLine)
	if err != nil {
		return err
	}
	bank, err := markov.BuildSlice(clauses, o.order)
	if err != nil {
		return fmt.Errorf("corpus %s: %w", corpus, err)
	}

	if o.prune > 0 {
		before := bank.Len()
		if bank, err = bank.Prune(o.prune); err != nil {
			return fmt.Errorf("corpus %s: pruning at %d: %w", corpus, o.prune, err)
		}
		logger.Info("Pruned bank",
			slog.Int("min_freq", o.prune),
			slog.Int("prefixes_before", before),
			slog.Int("prefixes_after", bank.Len()),
		)
	}

	if o.export == "-" {
		return bank.Export(w)
	}

	stats := bank.Stats()
	_, _ = fmt.Fprintf(w, "corpus:          %s\n", corpus)
	_, _ = fmt.Fprintf(w, "clauses:         %d\n", len(clauses))
	_, _ = fmt.Fprintf(w, "order:           %d\n", stats.Order)
	_, _ = fmt.Fprintf(w, "prefixes:        %d\n", stats.Prefixes)
	_, _ = fmt.Fprintf(w, "starters:        %d\n", stats.Starters)
	_, _ = fmt.Fprintf(w, "links:           %d\n", stats.Chains)
	_, _ = fmt.Fprintf(w, "transitions:     %d\n", stats.TotalFrequency)
	_, _ = fmt.Fprintf(w, "vocabulary:      %d\n", stats.Vocabulary)

	if o.export != "" {
		var buf bytes.Buffer
		if err := bank.Export(&buf); err != nil {
			return fmt.Errorf("failed to export bank: %w", err)
		}
		if err := atomic.WriteFile(o.export, &buf); err != nil {
			return fmt.Errorf("failed to write bank export: %w", err)
		}
		logger.Info("Exported bank", slog.String("path", o.export), slog.Int("bytes", buf.Len()))
	}
	return nil
}
