package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
)

// generateOptions is used by the generate functions to configure default options.
type generateOptions struct {
	rng         *rand.Rand
	temperature float64
	topK        int
	maxReseeds  int
	maxRun      int
	maxLength   int
	start       Prefix
	logger      *slog.Logger
}

func defaultGenerateOptions() *generateOptions {
	return &generateOptions{
		temperature: 1.0,
		topK:        0,
		maxReseeds:  1000,
		maxRun:      1000,
		maxLength:   0,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithRand sets the random source of the walk. A *rand.Rand is not safe for
// concurrent use, so concurrent walks need their own.
func WithRand(r *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = r }
}

// WithSeed makes walks reproducible by seeding one PCG source. Every walk
// configured with the same option value draws from that source, so successive
// walks continue one sequence instead of repeating the first. Like WithRand,
// such walks must not run concurrently.
func WithSeed(seed uint64) GenerateOption {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(o *generateOptions) { o.rng = rng }
}

// WithTemperature adjusts the randomness of the token selection.
// A value of 1.0 is standard frequency-weighted selection.
// Values > 1.0 increase randomness (making less frequent tokens more likely).
// Values < 1.0 decrease randomness (making more frequent tokens even more likely).
// A value of 0 or less results in deterministic selection (always choosing the most frequent token).
func WithTemperature(t float64) GenerateOption {
	return func(o *generateOptions) { o.temperature = t }
}

// WithTopK restricts the token selection pool to the top `k` most frequent tokens
// at each step. A value of 0 disables Top-K sampling.
func WithTopK(k int) GenerateOption {
	return func(o *generateOptions) { o.topK = k }
}

// WithMaxReseeds bounds how many times a walk may stitch in a new sentence
// start before it is cut off. Values below 1 are ignored.
func WithMaxReseeds(n int) GenerateOption {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxReseeds = n
		}
	}
}

// WithMaxSentenceWords bounds how many words a walk may sample without meeting
// a delimiter, which stops walks caught in a cycle with no sentence end. Values
// below 1 are ignored.
func WithMaxSentenceWords(n int) GenerateOption {
	return func(o *generateOptions) {
		if n > 0 {
			o.maxRun = n
		}
	}
}

// WithMaxLength caps the number of emitted tokens. 0 means no cap.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithStart begins the walk at p instead of a random sentence start. p must be
// a prefix of the Bank.
func WithStart(p Prefix) GenerateOption {
	return func(o *generateOptions) { o.start = slices.Clone(p) }
}

// WithLogger sets the logger used for generation diagnostics. By default, all
// logs are discarded.
func WithLogger(logger *slog.Logger) GenerateOption {
	return func(o *generateOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Walk is one stochastic pass over a Bank. It is single-use: once Next has
// returned io.EOF the walk is over, and another sentence needs a new Walk. A
// Walk is not safe for concurrent use; the Bank it reads is.
type Walk struct {
	bank      *Bank
	minWords  int
	opts      *generateOptions
	prefix    Prefix
	pending   []Token
	words     int
	spoken    int
	run       int
	reseeds   int
	emitted   int
	stopped   bool
	truncated bool
}

// NewWalk seeds a walk over b that will not stop before more than minWords
// words have been sampled. Seeding picks a random prefix starting with the
// Delimiter, or any prefix if the Bank has no sentence starts. It returns
// ErrEmptyModel for a nil or empty Bank.
func NewWalk(b *Bank, minWords int, opts ...GenerateOption) (*Walk, error) {
	if b == nil || len(b.prefixes) == 0 {
		return nil, ErrEmptyModel
	}
	options := defaultGenerateOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.rng == nil {
		options.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	w := &Walk{bank: b, minWords: minWords, opts: options}
	if options.start != nil {
		if len(options.start) != b.n-1 || !b.Contains(options.start) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPrefix, options.start)
		}
		w.prefix = slices.Clone(options.start)
	} else {
		w.prefix = slices.Clone(w.seed())
	}
	// The leading token of the first seed is a boundary marker, not text.
	w.pending = slices.Clone(w.prefix[1:])
	return w, nil
}

// seed returns a random sentence-start prefix, falling back to any prefix.
func (w *Walk) seed() Prefix {
	candidates := w.bank.starters
	if len(candidates) == 0 {
		w.opts.logger.Debug("Seeding from any prefix",
			slog.Any("reason", ErrNoValidSeed),
			slog.Int("prefixes", len(w.bank.prefixes)),
		)
		candidates = w.bank.prefixes
	}
	return candidates[w.opts.rng.IntN(len(candidates))]
}

// Next returns the next token of the walk, or io.EOF once it has stopped. A walk
// that reaches the reseed cap without having produced a word returns
// ErrNoValidSeed instead.
func (w *Walk) Next() (Token, error) {
	for {
		if w.opts.maxLength > 0 && w.emitted >= w.opts.maxLength && !w.stopped {
			w.stop(true, "Generation terminated by reaching maxLength")
		}
		if w.stopped {
			return "", io.EOF
		}
		if len(w.pending) > 0 {
			tok := w.pending[0]
			w.pending = w.pending[1:]
			w.emitted++
			if tok.IsWord() {
				w.spoken++
			}
			return tok, nil
		}

		choices, total := w.bank.Successors(w.prefix)
		next := Delimiter
		if len(choices) > 0 {
			next = chooseNextToken(choices, total, w.opts)
		}

		if next.IsDelimiter() {
			if w.words > w.minWords {
				w.stop(false, "Generation terminated by delimiter")
				return "", io.EOF
			}
			if w.reseeds >= w.opts.maxReseeds {
				w.stop(true, "Generation terminated by reseed limit")
				if w.spoken == 0 {
					return "", fmt.Errorf("%w: no words after %d reseeds", ErrNoValidSeed, w.reseeds)
				}
				return "", io.EOF
			}
			// Premature end or dead end: stitch in another sentence start and keep counting.
			w.reseeds++
			w.run = 0
			w.prefix = slices.Clone(w.seed())
			w.pending = slices.Clone(w.prefix)
			continue
		}

		if w.run >= w.opts.maxRun {
			w.stop(true, "Generation terminated by sentence word limit")
			return "", io.EOF
		}
		w.words++
		if next.IsWord() {
			w.spoken++
		}
		w.run++
		copy(w.prefix, w.prefix[1:])
		w.prefix[len(w.prefix)-1] = next
		w.emitted++
		return next, nil
	}
}

func (w *Walk) stop(truncated bool, msg string) {
	w.stopped = true
	w.truncated = truncated
	level := slog.LevelDebug
	if truncated {
		level = slog.LevelWarn
	}
	w.opts.logger.Log(context.Background(), level, msg,
		slog.Int("order", w.bank.n),
		slog.Int("words", w.words),
		slog.Int("reseeds", w.reseeds),
		slog.Int("generated_length", w.emitted),
	)
}

// Words returns how many words the walk has sampled, excluding seed tokens.
func (w *Walk) Words() int { return w.words }

// Reseeds returns how many times the walk stitched in a new sentence start.
func (w *Walk) Reseeds() int { return w.reseeds }

// Truncated reports whether the walk was cut off by the reseed, sentence or
// length cap rather than ending on a delimiter.
func (w *Walk) Truncated() bool { return w.truncated }

// Generate runs one walk over b and returns every token it produced.
func Generate(b *Bank, minWords int, opts ...GenerateOption) ([]Token, error) {
	w, err := NewWalk(b, minWords, opts...)
	if err != nil {
		return nil, err
	}
	return w.Collect()
}

// Collect drains the walk. A walk that produced no word at all returns
// ErrNoValidSeed instead of an empty sentence.
func (w *Walk) Collect() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := w.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return tokens, nil
			}
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// chooseNextToken picks one successor according to the sampling options. With
// the default temperature of 1.0 a successor seen k times is k times as likely
// as one seen once.
func chooseNextToken(choices []Successor, totalFreq int, options *generateOptions) Token {
	var nextToken Token

	// topK filtering, on a copy since the Bank's slices are shared.
	if options.topK > 0 && options.topK < len(choices) {
		choices = slices.Clone(choices)
		sort.SliceStable(choices, func(i, j int) bool {
			return choices[i].Freq > choices[j].Freq
		})
		choices = choices[:options.topK]
		totalFreq = 0
		for _, choice := range choices {
			totalFreq += choice.Freq
		}
	}

	rng := options.rng
	if options.temperature <= 0 { // Deterministic
		maxFreq := -1
		for _, choice := range choices {
			if choice.Freq > maxFreq {
				maxFreq = choice.Freq
				nextToken = choice.Token
			}
		}
	} else if options.temperature == 1.0 { // Standard weighted random
		randChoice := rng.IntN(totalFreq)
		for _, choice := range choices {
			randChoice -= choice.Freq
			if randChoice < 0 {
				nextToken = choice.Token
				break
			}
		}
	} else { // Temperature-based sampling
		logProbabilities := make([]float64, len(choices))
		epsilon := -1e9
		for i, choice := range choices {
			lp := math.Log(float64(choice.Freq)) / options.temperature
			logProbabilities[i] = lp
			if lp > epsilon {
				epsilon = lp
			}
		}
		var totalWeight float64
		weights := make([]float64, len(choices))
		for i, lp := range logProbabilities {
			weight := math.Exp(lp - epsilon)
			weights[i] = weight
			totalWeight += weight
		}
		randChoice := rng.Float64() * totalWeight
		nextToken = choices[len(choices)-1].Token
		for i, choice := range choices {
			randChoice -= weights[i]
			if randChoice < 0 {
				nextToken = choice.Token
				break
			}
		}
	}
	return nextToken
}
