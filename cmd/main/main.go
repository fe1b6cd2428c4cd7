package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// globalFlags are the flags of the root command, shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

// env is what every subcommand needs after startup.
type env struct {
	cfg    *Config
	logger *slog.Logger
}

// setup loads the configuration, applies the global flag overrides and builds
// the logger.
func (g *globalFlags) setup() (*env, error) {
	cfg, err := LoadConfig(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &env{cfg: cfg, logger: newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)}, nil
}

func newApp() *cli.Command {
	g := &globalFlags{}
	return &cli.Command{
		Name:  "colloquy",
		Usage: "Generate sentences and dialogues from n-gram models of text",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the JSON or YAML configuration file",
				Value:       "./config.json",
				Destination: &g.configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error), overrides the config",
				Destination: &g.logLevel,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "log format (text, json), overrides the config",
				Destination: &g.logFormat,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			dialogueCmd(g),
			babbleCmd(g),
			bankCmd(g),
			transcriptCmd(g),
			versionCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
