package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/CTAG07/colloquy/pkg/markov"
)

// Params are the generation parameters of a Speaker.
type Params struct {
	N          int // Model order.
	MinWords   int // Words to sample before a delimiter may end the utterance.
	MinSize    int // Minimum rune length of a word counted towards a topic match.
	MinMatches int // Distinct topic words a clause must contain to be on topic.
}

// DefaultParams returns the parameters the two-party dialogue runs with.
func DefaultParams() Params {
	return Params{N: 3, MinWords: 15, MinSize: 6, MinMatches: 2}
}

// Utterance is the result of one Speak call.
type Utterance struct {
	Speaker    string
	Turn       int          // 1-based position within a Session, 0 outside one.
	Topic      markov.Topic // nil when the corpus was not filtered
	Candidates int          // Clauses the Bank was built from.
	Tokens     []markov.Token
	Text       string // Rendered by the Session.
	Truncated  bool
}

// Speaker generates utterances from one corpus. Speak is safe for concurrent
// use as long as the generate options do not share a *rand.Rand, which
// markov.WithRand and markov.WithSeed both do.
type Speaker struct {
	name    string
	corpus  []markov.Clause
	params  Params
	genOpts []markov.GenerateOption
	logger  *slog.Logger

	bankOnce sync.Once
	bank     *markov.Bank
	bankErr  error
}

// SpeakerOption configures a Speaker.
type SpeakerOption func(*Speaker)

// WithGenerateOptions sets the options passed to every walk of the Speaker.
func WithGenerateOptions(opts ...markov.GenerateOption) SpeakerOption {
	return func(s *Speaker) { s.genOpts = append(s.genOpts, opts...) }
}

// WithLogger sets the logger of the Speaker. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) SpeakerOption {
	return func(s *Speaker) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpeaker creates a Speaker over corpus. It fails with markov.ErrEmptyModel
// when corpus is empty and markov.ErrInvalidOrder when p.N < 2.
func NewSpeaker(name string, corpus []markov.Clause, p Params, opts ...SpeakerOption) (*Speaker, error) {
	if len(corpus) == 0 {
		return nil, fmt.Errorf("speaker %s: %w", name, markov.ErrEmptyModel)
	}
	if p.N < 2 {
		return nil, fmt.Errorf("speaker %s: %w: got %d", name, markov.ErrInvalidOrder, p.N)
	}
	s := &Speaker{
		name:   name,
		corpus: corpus,
		params: p,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("speaker", name))
	return s, nil
}

// Name returns the name of the Speaker.
func (s *Speaker) Name() string { return s.name }

// Params returns the generation parameters of the Speaker.
func (s *Speaker) Params() Params { return s.params }

// CorpusSize returns the number of clauses in the corpus.
func (s *Speaker) CorpusSize() int { return len(s.corpus) }

// Bank returns the Bank over the whole corpus, building it on first use.
func (s *Speaker) Bank() (*markov.Bank, error) {
	s.bankOnce.Do(func() {
		s.bank, s.bankErr = markov.BuildSlice(s.corpus, s.params.N)
		if s.bankErr == nil {
			s.logger.Debug("Built corpus bank", slog.Int("clauses", len(s.corpus)), slog.Int("prefixes", s.bank.Len()))
		}
	})
	return s.bank, s.bankErr
}

// Speak generates one utterance. With a non-empty topic the Bank is built from
// the clauses relevant to it; if there are none, or they are too short to
// build a Bank from, the Speaker changes the subject and uses its whole corpus
// once. Every error names the Speaker.
func (s *Speaker) Speak(ctx context.Context, topic markov.Topic) (*Utterance, error) {
	for _, filtered := range []bool{topic.Len() > 0, false} {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("speaker %s: %w", s.name, err)
		}

		var (
			bank       *markov.Bank
			candidates int
			err        error
		)
		if filtered {
			clauses := slices.Collect(markov.FilterByTopic(slices.Values(s.corpus), topic, s.params.MinMatches, s.params.MinSize))
			if len(clauses) == 0 {
				s.logger.DebugContext(ctx, "No clauses on topic", slog.String("topic", topic.String()))
				continue
			}
			bank, err = markov.BuildSlice(clauses, s.params.N)
			if errors.Is(err, markov.ErrEmptyModel) {
				s.logger.DebugContext(ctx, "Topic clauses too short for a bank",
					slog.String("topic", topic.String()),
					slog.Int("clauses", len(clauses)),
				)
				continue
			}
			candidates = len(clauses)
		} else {
			bank, err = s.Bank()
			candidates = len(s.corpus)
		}
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", s.name, err)
		}

		w, err := markov.NewWalk(bank, s.params.MinWords, s.genOpts...)
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", s.name, err)
		}
		tokens, err := w.Collect()
		if err != nil {
			return nil, fmt.Errorf("speaker %s: %w", s.name, err)
		}

		u := &Utterance{
			Speaker:    s.name,
			Candidates: candidates,
			Tokens:     tokens,
			Truncated:  w.Truncated(),
		}
		if filtered {
			u.Topic = topic
		}
		s.logger.DebugContext(ctx, "Spoke",
			slog.Bool("on_topic", filtered),
			slog.Int("candidates", candidates),
			slog.Int("words", w.Words()),
			slog.Int("reseeds", w.Reseeds()),
		)
		return u, nil
	}
	// The unfiltered pass always returns.
	return nil, fmt.Errorf("speaker %s: %w", s.name, markov.ErrEmptyModel)
}
