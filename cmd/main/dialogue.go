package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/colloquy/pkg/dialogue"
	"github.com/CTAG07/colloquy/pkg/markov"
	"github.com/urfave/cli/v3"
)

func dialogueCmd(g *globalFlags) *cli.Command {
	var (
		turns       int
		interactive bool
		record      bool
		seed        uint64
		order       int
		minWords    int
	)

	return &cli.Command{
		Name:  "dialogue",
		Usage: "Let the configured speakers answer each other",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "turns",
				Aliases:     []string{"t"},
				Usage:       "number of utterances, 0 runs until interrupted",
				Value:       10,
				Destination: &turns,
			},
			&cli.BoolFlag{
				Name:        "interactive",
				Aliases:     []string{"i"},
				Usage:       "wait for Enter before every utterance after the first",
				Destination: &interactive,
			},
			&cli.BoolFlag{
				Name:        "record",
				Usage:       "store the session in the transcript database, overrides the config",
				Destination: &record,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "random seed for reproducible sessions, overrides the config",
				Destination: &seed,
			},
			&cli.IntFlag{
				Name:        "order",
				Aliases:     []string{"n"},
				Usage:       "model order, overrides the config",
				Destination: &order,
			},
			&cli.IntFlag{
				Name:        "min-words",
				Usage:       "words to generate before an utterance may end, overrides the config",
				Destination: &minWords,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := g.setup()
			if err != nil {
				return err
			}
			cfg, logger := e.cfg, e.logger
			if cmd.IsSet("record") {
				cfg.Transcript.Enabled = record
			}
			if cmd.IsSet("seed") {
				cfg.Generation.Seed = &seed
			}
			if cmd.IsSet("order") {
				cfg.Generation.N = order
			}
			if cmd.IsSet("min-words") {
				cfg.Generation.MinWords = minWords
			}
			if err = cfg.Validate(); err != nil {
				return err
			}
			if len(cfg.Speakers) == 0 {
				return dialogue.ErrNoSpeakers
			}

			speakers, err := loadSpeakers(cfg, logger)
			if err != nil {
				return err
			}

			opts := []dialogue.SessionOption{
				dialogue.WithRenderer(markov.NewRenderer(markov.WithProperNouns(properNouns(cfg)...))),
				dialogue.WithSalientLength(cfg.Generation.SalientLength),
				dialogue.WithSessionLogger(logger),
			}
			if cfg.Transcript.Enabled {
				store, closeStore, err := openTranscript(cfg.Transcript.DatabasePath, logger)
				if err != nil {
					return err
				}
				defer closeStore()
				opts = append(opts, dialogue.WithRecorder(store))
			}

			session, err := dialogue.NewSession(speakers, opts...)
			if err != nil {
				return err
			}
			logger.Info("Starting dialogue", slog.String("session", session.ID()), slog.Int("speakers", len(speakers)))

			return runDialogue(ctx, session, turns, interactive, bufio.NewReader(cmd.Root().Reader), cmd.Root().Writer)
		},
	}
}

// runDialogue prints turns utterances of session to w, or runs until the
// context is done when turns is 0. In interactive mode it reads a line from r
// before every utterance but the first; end of input stops the dialogue.
func runDialogue(ctx context.Context, session *dialogue.Session, turns int, interactive bool, r *bufio.Reader, w io.Writer) error {
	for i := 0; turns <= 0 || i < turns; i++ {
		if i > 0 {
			if interactive {
				if err := waitForEnter(ctx, r); err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
			} else {
				_, _ = fmt.Fprintln(w)
			}
		}

		u, err := session.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if err = writeTurn(w, u.Speaker, u.Topic.Words(), u.Topic != nil, u.Candidates, u.Text); err != nil {
			return err
		}
	}
	return nil
}

// writeTurn prints one utterance, preceded by a line telling whether the
// speaker stayed on topic:
//
//	                     [12 clauses on "growth taxes"]
//
//	DEMOCRAT  : Taxes on the middle class.
func writeTurn[T ~string](w io.Writer, speaker string, topic []T, onTopic bool, candidates int, text string) error {
	header := "[new topic]"
	if onTopic {
		words := make([]string, len(topic))
		for i, t := range topic {
			words[i] = string(t)
		}
		header = fmt.Sprintf("[%d clauses on \"%s\"]", candidates, strings.Join(words, " "))
	}
	_, err := fmt.Fprintf(w, "%20s %s\n\n%-10s: %s\n", "", header, strings.ToUpper(speaker), text)
	return err
}

// waitForEnter blocks until a line is read from r or ctx is done.
func waitForEnter(ctx context.Context, r *bufio.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := r.ReadString('\n')
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
