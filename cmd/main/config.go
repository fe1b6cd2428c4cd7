package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/colloquy/pkg/dialogue"
	"github.com/CTAG07/colloquy/pkg/markov"
	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// GenerationConfig holds the parameters shared by every speaker.
type GenerationConfig struct {
	N             int     `json:"n" yaml:"n"`
	MinWords      int     `json:"min_words" yaml:"min_words"`
	MinSize       int     `json:"min_size" yaml:"min_size"`
	MinMatches    int     `json:"min_matches" yaml:"min_matches"`
	SalientLength int     `json:"salient_length" yaml:"salient_length"`
	MaxReseeds    int     `json:"max_reseeds" yaml:"max_reseeds"`
	Temperature   float64 `json:"temperature" yaml:"temperature"`
	TopK          int     `json:"top_k" yaml:"top_k"`
	Seed          *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"` // nil picks a random seed
}

// SpeakerConfig describes one speaker and the corpus it learns from.
type SpeakerConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Corpus      string   `json:"corpus" yaml:"corpus"`
	Mode        string   `json:"mode" yaml:"mode"`
	ProperNouns []string `json:"proper_nouns,omitempty" yaml:"proper_nouns,omitempty"`
	FirstLine   int      `json:"first_line,omitempty" yaml:"first_line,omitempty"`
	LastLine    int      `json:"last_line,omitempty" yaml:"last_line,omitempty"`
}

// TranscriptConfig controls whether dialogue sessions are stored.
type TranscriptConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	DatabasePath string `json:"database_path" yaml:"database_path"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	LogLevel   string            `json:"log_level" yaml:"log_level"`
	LogFormat  string            `json:"log_format" yaml:"log_format"`
	Generation *GenerationConfig `json:"generation" yaml:"generation"`
	Speakers   []*SpeakerConfig  `json:"speakers" yaml:"speakers"`
	Transcript *TranscriptConfig `json:"transcript" yaml:"transcript"`
}

// DefaultGenerationConfig returns the parameters of the two-party dialogue.
func DefaultGenerationConfig() *GenerationConfig {
	p := dialogue.DefaultParams()
	return &GenerationConfig{
		N:             p.N,
		MinWords:      p.MinWords,
		MinSize:       p.MinSize,
		MinMatches:    p.MinMatches,
		SalientLength: 5,
		MaxReseeds:    1000,
		Temperature:   1.0,
		TopK:          0,
	}
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		LogFormat:  "text",
		Generation: DefaultGenerationConfig(),
		Speakers: []*SpeakerConfig{
			{Name: "Republican", Corpus: "republican.txt", Mode: markov.ModeSentence.String()},
			{Name: "Democrat", Corpus: "democratic.txt", Mode: markov.ModeSentence.String()},
		},
		Transcript: &TranscriptConfig{
			Enabled:      false,
			DatabasePath: "./data/transcripts.db",
		},
	}
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func marshalConfig(path string, config *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(config)
	}
	return json.MarshalIndent(config, "", "  ")
}

// LoadConfig reads the configuration from a JSON or YAML file at the given
// path. If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = marshalConfig(path, config)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing, the defaults are still usable.
				_, _ = fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if isYAML(path) {
		err = yaml.Unmarshal(file, config)
	} else {
		err = json.Unmarshal(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if config.Generation == nil {
		config.Generation = DefaultGenerationConfig()
	}
	if config.Transcript == nil {
		config.Transcript = DefaultConfig().Transcript
	}
	return config, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Generation.N < 2 {
		return fmt.Errorf("generation: %w: got %d", markov.ErrInvalidOrder, c.Generation.N)
	}
	if c.Generation.MinWords < 0 {
		return errors.New("generation: min_words must not be negative")
	}
	for i, sp := range c.Speakers {
		if sp == nil || sp.Name == "" {
			return fmt.Errorf("speaker %d has no name", i)
		}
		if sp.Corpus == "" {
			return fmt.Errorf("speaker %s has no corpus", sp.Name)
		}
		if _, err := markov.ParseMode(sp.Mode); err != nil {
			return fmt.Errorf("speaker %s: %w", sp.Name, err)
		}
		if sp.LastLine > 0 && sp.FirstLine > sp.LastLine {
			return fmt.Errorf("speaker %s: first_line %d is after last_line %d", sp.Name, sp.FirstLine, sp.LastLine)
		}
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var logLevel slog.Level
	switch strings.ToLower(s) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info", "":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return logLevel, nil
}

// newLogger builds the application logger. Logs go to w, which is stderr in
// the binary, so that utterances on stdout stay clean.
func newLogger(w io.Writer, level, format string) *slog.Logger {
	logLevel, err := parseLogLevel(level)
	if err != nil {
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
