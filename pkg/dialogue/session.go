package dialogue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/colloquy/pkg/markov"
	"github.com/CTAG07/colloquy/pkg/transcript"
	"github.com/google/uuid"
)

// ErrNoSpeakers is returned by NewSession without speakers.
var ErrNoSpeakers = errors.New("dialogue: session needs at least one speaker")

// Recorder stores the turns of a Session. *transcript.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e transcript.Entry) error
}

// Session alternates between speakers, each answering the salient words of the
// previous utterance. A Session is not safe for concurrent use.
type Session struct {
	id            string
	speakers      []*Speaker
	renderer      *markov.Renderer
	salientLength int
	recorder      Recorder
	logger        *slog.Logger

	turn  int
	topic markov.Topic
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRenderer sets the Renderer used to turn utterances into text.
func WithRenderer(r *markov.Renderer) SessionOption {
	return func(s *Session) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithSalientLength sets how many runes a word needs to exceed to be handed to
// the next speaker as topic. The default is 5.
func WithSalientLength(n int) SessionOption {
	return func(s *Session) { s.salientLength = n }
}

// WithRecorder records every turn of the Session.
func WithRecorder(r Recorder) SessionOption {
	return func(s *Session) { s.recorder = r }
}

// WithSessionLogger sets the logger of the Session. By default, all logs are
// discarded.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a Session in which speakers take turns in the given order.
func NewSession(speakers []*Speaker, opts ...SessionOption) (*Session, error) {
	if len(speakers) == 0 {
		return nil, ErrNoSpeakers
	}
	for i, sp := range speakers {
		if sp == nil {
			return nil, fmt.Errorf("dialogue: speaker %d is nil", i)
		}
	}
	s := &Session{
		id:            uuid.NewString(),
		speakers:      speakers,
		renderer:      markov.NewRenderer(),
		salientLength: 5,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("session", s.id))
	return s, nil
}

// ID returns the unique identifier of the Session.
func (s *Session) ID() string { return s.id }

// Turn returns the number of completed turns.
func (s *Session) Turn() int { return s.turn }

// Topic returns the topic the next speaker will be given.
func (s *Session) Topic() markov.Topic { return s.topic }

// Next lets the next speaker talk. The first speaker starts without a topic.
// When recording fails the utterance is still returned along with the error,
// and the Session does not advance.
func (s *Session) Next(ctx context.Context) (*Utterance, error) {
	speaker := s.speakers[s.turn%len(s.speakers)]

	u, err := speaker.Speak(ctx, s.topic)
	if err != nil {
		return nil, err
	}
	u.Turn = s.turn + 1
	u.Text = s.renderer.Render(u.Tokens)

	if s.recorder != nil {
		entry := transcript.Entry{
			SessionID:  s.id,
			Turn:       u.Turn,
			Speaker:    u.Speaker,
			Candidates: u.Candidates,
			Text:       u.Text,
			Truncated:  u.Truncated,
		}
		for _, w := range u.Topic.Words() {
			entry.Topic = append(entry.Topic, string(w))
		}
		if err := s.recorder.Record(ctx, entry); err != nil {
			return u, fmt.Errorf("could not record turn %d: %w", u.Turn, err)
		}
	}

	s.turn++
	s.topic = markov.SalientWords(u.Tokens, s.salientLength)
	s.logger.InfoContext(ctx, "Turn complete",
		slog.Int("turn", u.Turn),
		slog.String("speaker", u.Speaker),
		slog.Int("candidates", u.Candidates),
		slog.Bool("on_topic", u.Topic != nil),
		slog.String("next_topic", s.topic.String()),
	)
	return u, nil
}
