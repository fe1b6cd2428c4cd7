package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/natefinch/atomic"
	"github.com/urfave/cli/v3"
)

func transcriptCmd(g *globalFlags) *cli.Command {
	var output string

	return &cli.Command{
		Name:  "transcript",
		Usage: "Inspect recorded dialogue sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded sessions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := g.setup()
					if err != nil {
						return err
					}
					store, closeStore, err := openTranscript(e.cfg.Transcript.DatabasePath, e.logger)
					if err != nil {
						return err
					}
					defer closeStore()

					sessions, err := store.Sessions(ctx)
					if err != nil {
						return err
					}
					w := cmd.Root().Writer
					for _, s := range sessions {
						_, _ = fmt.Fprintf(w, "%s  %s  %3d turns\n", s.ID, s.StartedAt.Local().Format(time.DateTime), s.Turns)
					}
					return nil
				},
			},
			{
				Name:      "show",
				Usage:     "Print a recorded session",
				ArgsUsage: "<session id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return errors.New("show needs exactly one session ID")
					}
					e, err := g.setup()
					if err != nil {
						return err
					}
					store, closeStore, err := openTranscript(e.cfg.Transcript.DatabasePath, e.logger)
					if err != nil {
						return err
					}
					defer closeStore()

					turns, err := store.Turns(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					w := cmd.Root().Writer
					for i, t := range turns {
						if i > 0 {
							_, _ = fmt.Fprintln(w)
						}
						if err := writeTurn(w, t.Speaker, t.Topic, t.Topic != nil, t.Candidates, t.Text); err != nil {
							return err
						}
					}
					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "Export a recorded session as JSON",
				ArgsUsage: "<session id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "output",
						Aliases:     []string{"o"},
						Usage:       "file to write, stdout when empty",
						Destination: &output,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return errors.New("export needs exactly one session ID")
					}
					e, err := g.setup()
					if err != nil {
						return err
					}
					store, closeStore, err := openTranscript(e.cfg.Transcript.DatabasePath, e.logger)
					if err != nil {
						return err
					}
					defer closeStore()

					if output == "" {
						return store.Export(ctx, cmd.Args().First(), cmd.Root().Writer)
					}
					var buf bytes.Buffer
					if err := store.Export(ctx, cmd.Args().First(), &buf); err != nil {
						return err
					}
					if err := atomic.WriteFile(output, &buf); err != nil {
						return fmt.Errorf("failed to write session export: %w", err)
					}
					return nil
				},
			},
		},
	}
}
