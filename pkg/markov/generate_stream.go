package markov

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// GenerateStream runs one walk over b and returns a read-only channel of its
// tokens. Seeding errors are returned immediately. The channel is closed once
// the walk stops or the context is cancelled, which lets a caller abandon a
// walk without draining it.
func GenerateStream(ctx context.Context, b *Bank, minWords int, opts ...GenerateOption) (<-chan Token, error) {
	w, err := NewWalk(b, minWords, opts...)
	if err != nil {
		return nil, err
	}

	tokenChan := make(chan Token)

	go func() {
		defer close(tokenChan)
		for {
			tok, err := w.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					w.opts.logger.ErrorContext(ctx, "Generation stream failed", slog.Any("error", err))
				}
				return
			}
			if ctx.Err() != nil {
				w.opts.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("generated_length", w.emitted),
				)
				return
			}
			select {
			case <-ctx.Done():
				w.opts.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("generated_length", w.emitted),
				)
				return
			case tokenChan <- tok:
			}
		}
	}()

	return tokenChan, nil
}
