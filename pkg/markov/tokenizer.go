package markov

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Mode selects how a DefaultTokenizer groups tokens into clauses.
type Mode int

const (
	// ModeSentence splits the text into grammatical sentences and yields one
	// Clause per sentence, each starting with a Delimiter.
	ModeSentence Mode = iota
	// ModeLine treats the input as a stream of lines and yields the whole text
	// as a single flat Clause in which delimiters mark sentence ends.
	ModeLine
)

func (m Mode) String() string {
	switch m {
	case ModeSentence:
		return "sentence"
	case ModeLine:
		return "line"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "sentence" or "line" to a Mode. An empty string selects ModeSentence.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sentence", "sentences":
		return ModeSentence, nil
	case "line", "lines":
		return ModeLine, nil
	default:
		return 0, fmt.Errorf("unknown tokenizer mode %q", s)
	}
}

// DefaultTokenizer is the Tokenizer used by colloquy. Both modes share the same
// line reading and normalization; they only differ in how the normalized tokens
// are grouped. Its behavior can be customized with functional options.
type DefaultTokenizer struct {
	mode       Mode
	normalizer *Normalizer
	splitter   SentenceSplitter
	firstLine  int
	lastLine   int
}

// TokenizerOption configures a DefaultTokenizer.
type TokenizerOption func(*DefaultTokenizer)

// WithMode sets the grouping mode. Default: ModeSentence
func WithMode(m Mode) TokenizerOption {
	return func(t *DefaultTokenizer) { t.mode = m }
}

// WithNormalizer sets the Normalizer applied to every sentence or line.
func WithNormalizer(n *Normalizer) TokenizerOption {
	return func(t *DefaultTokenizer) {
		if n != nil {
			t.normalizer = n
		}
	}
}

// WithSentenceSplitter sets the sentence boundary detector used in ModeSentence.
// Default: the English Punkt model from github.com/neurosnap/sentences.
func WithSentenceSplitter(s SentenceSplitter) TokenizerOption {
	return func(t *DefaultTokenizer) {
		if s != nil {
			t.splitter = s
		}
	}
}

// WithLineRange restricts input to lines first through last, 1-based and
// inclusive. Zero leaves that end of the range open.
func WithLineRange(first, last int) TokenizerOption {
	return func(t *DefaultTokenizer) {
		t.firstLine = first
		t.lastLine = last
	}
}

// NewTokenizer creates a tokenizer with default settings, which can be
// overridden by providing one or more TokenizerOption functions.
func NewTokenizer(opts ...TokenizerOption) *DefaultTokenizer {
	t := &DefaultTokenizer{
		mode:       ModeSentence,
		normalizer: defaultNormalizer,
		splitter:   defaultSplitter,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Mode returns the configured grouping mode.
func (t *DefaultTokenizer) Mode() Mode { return t.mode }

// NewStream returns a ClauseStream over r.
func (t *DefaultTokenizer) NewStream(r io.Reader) ClauseStream {
	if t.mode == ModeLine {
		return &flatClauseStream{tokens: t.NewTokenStream(r)}
	}
	return &sentenceStream{lines: t.newLineReader(r), normalizer: t.normalizer, splitter: t.splitter}
}

// NewTokenStream returns the flat line-mode token stream over r, regardless of
// the configured mode. The stream opens with a Delimiter so the first sentence
// can be used as a generation seed, and closes with one if the text did not.
func (t *DefaultTokenizer) NewTokenStream(r io.Reader) TokenStream {
	return &lineTokenStream{lines: t.newLineReader(r), normalizer: t.normalizer}
}

// Clauses tokenizes text lazily. The sequence is restartable: every range over
// it tokenizes text again from the beginning.
func (t *DefaultTokenizer) Clauses(text string) iter.Seq[Clause] {
	return func(yield func(Clause) bool) {
		stream := t.NewStream(strings.NewReader(text))
		for {
			clause, err := stream.Next()
			if err != nil {
				return
			}
			if !yield(clause) {
				return
			}
		}
	}
}

// ReadClauses tokenizes everything in r. It returns ErrMalformedInput if the
// input produced no tokens.
func (t *DefaultTokenizer) ReadClauses(r io.Reader) ([]Clause, error) {
	stream := t.NewStream(r)
	var clauses []Clause
	for {
		clause, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		return nil, ErrMalformedInput
	}
	return clauses, nil
}

// lineReader yields the lines of a reader that fall inside the configured range.
type lineReader struct {
	r     *bufio.Reader
	line  int
	first int
	last  int
}

func (t *DefaultTokenizer) newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r), first: t.firstLine, last: t.lastLine}
}

// next returns the next selected line without its newline, or io.EOF.
func (l *lineReader) next() (string, error) {
	for {
		if l.last > 0 && l.line >= l.last {
			return "", io.EOF
		}
		text, err := l.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if text == "" && err != nil {
			return "", io.EOF
		}
		l.line++
		if l.first > 0 && l.line < l.first {
			continue
		}
		return strings.TrimRight(text, "\r\n"), nil
	}
}

// lineTokenStream is the line-mode token stream. It keeps the delimiter
// invariants across line boundaries.
type lineTokenStream struct {
	lines      *lineReader
	normalizer *Normalizer
	buffer     []Token
	last       Token
	started    bool
	done       bool
}

// Next returns the next token, or io.EOF when the stream is fully consumed.
func (s *lineTokenStream) Next() (Token, error) {
	if !s.started {
		s.started = true
		s.last = Delimiter
		return Delimiter, nil
	}
	for {
		for len(s.buffer) > 0 {
			tok := s.buffer[0]
			s.buffer = s.buffer[1:]
			if tok.IsDelimiter() && s.last.IsDelimiter() {
				continue
			}
			s.last = tok
			return tok, nil
		}
		if s.done {
			return "", io.EOF
		}
		line, err := s.lines.next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return "", err
			}
			s.done = true
			if !s.last.IsDelimiter() {
				s.buffer = append(s.buffer, Delimiter)
			}
			continue
		}
		s.buffer = s.normalizer.Normalize(line)
	}
}

// flatClauseStream drains a token stream into one Clause.
type flatClauseStream struct {
	tokens TokenStream
	done   bool
}

func (s *flatClauseStream) Next() (Clause, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	var clause Clause
	words := 0
	for {
		tok, err := s.tokens.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if tok.IsWord() {
			words++
		}
		clause = append(clause, tok)
	}
	if words == 0 {
		return nil, io.EOF
	}
	return clause, nil
}

// sentenceStream reads the whole input on first use, splits it into sentences
// and yields one Clause per non-empty sentence.
type sentenceStream struct {
	lines      *lineReader
	normalizer *Normalizer
	splitter   SentenceSplitter
	sentences  []string
	loaded     bool
}

func (s *sentenceStream) Next() (Clause, error) {
	if !s.loaded {
		s.loaded = true
		var sb strings.Builder
		for {
			line, err := s.lines.next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, err
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
		s.sentences = s.splitter.Split(sb.String())
	}
	for len(s.sentences) > 0 {
		sentence := s.sentences[0]
		s.sentences = s.sentences[1:]

		clause := Clause{Delimiter}
		words := 0
		for _, tok := range s.normalizer.Normalize(sentence) {
			if tok.IsWord() {
				words++
			}
			clause = appendToken(clause, tok)
		}
		if words == 0 {
			continue
		}
		if !clause[len(clause)-1].IsDelimiter() {
			clause = appendToken(clause, Delimiter)
		}
		return clause, nil
	}
	return nil, io.EOF
}

// punktSplitter detects sentence boundaries with the Punkt algorithm. The
// English model is loaded on first use.
type punktSplitter struct {
	once sync.Once
	mu   sync.Mutex
	tok  *sentences.DefaultSentenceTokenizer
	err  error
}

var defaultSplitter = &punktSplitter{}

// Split returns the sentences of text. If the Punkt model cannot be loaded,
// every non-blank line is treated as a sentence.
func (p *punktSplitter) Split(text string) []string {
	p.once.Do(func() {
		p.tok, p.err = english.NewSentenceTokenizer(nil)
	})
	if p.err != nil {
		return LineSplitter{}.Split(text)
	}
	p.mu.Lock()
	found := p.tok.Tokenize(text)
	p.mu.Unlock()

	out := make([]string, 0, len(found))
	for _, s := range found {
		if strings.TrimSpace(s.Text) != "" {
			out = append(out, s.Text)
		}
	}
	return out
}

// LineSplitter is a SentenceSplitter that treats each non-blank line as a sentence.
type LineSplitter struct{}

func (LineSplitter) Split(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
