package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/rank"
	"github.com/roach88/threadview/internal/stream"
)

// Recorder receives one entry per reconciled event. *journal.Journal
// implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithNow sets the wall clock used for Hot ranking. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSortMode sets the initial sort mode. Defaults to Hot.
func WithSortMode(m model.SortMode) Option {
	return func(e *Engine) {
		e.mode = m
	}
}

// WithRankConfig replaces the Hot rank constants.
func WithRankConfig(cfg rank.Config) Option {
	return func(e *Engine) {
		e.rankCfg = cfg
	}
}

// WithJournal records every reconciled event to r.
func WithJournal(r Recorder) Option {
	return func(e *Engine) {
		e.journal = r
	}
}

// WithRunID sets the id grouping this engine's journal entries. Defaults to a
// fresh UUIDv7.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.run = id
	}
}

// WithUpdateHandler registers fn as OnUpdate does, before any event can
// arrive.
func WithUpdateHandler(fn func(View)) Option {
	return func(e *Engine) {
		e.updateHandlers = append(e.updateHandlers, fn)
	}
}

// WithFailureHandler registers fn as OnFailure does, before any event can
// arrive.
func WithFailureHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.failureHandlers = append(e.failureHandlers, fn)
	}
}

// WithTerminalHandler registers fn as OnTerminalFailure does, before the
// stream starts.
func WithTerminalHandler(fn func(error)) Option {
	return func(e *Engine) {
		e.terminalHandlers = append(e.terminalHandlers, fn)
	}
}

// WithCacheSize sets how many sorted forests are cached. Zero disables the
// cache. Default: DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cacheSize = n
	}
}

// WithPolicy sets the retry policy of the stream started by Open.
func WithPolicy(p *stream.Policy) Option {
	return func(e *Engine) {
		e.streamOpts = append(e.streamOpts, stream.WithPolicy(p))
	}
}

// WithWait replaces the retry timer of the stream started by Open.
func WithWait(w stream.WaitFunc) Option {
	return func(e *Engine) {
		e.streamOpts = append(e.streamOpts, stream.WithWait(w))
	}
}

// WithSessionIDs sets the session id generator of the stream started by Open.
func WithSessionIDs(g stream.SessionIDGenerator) Option {
	return func(e *Engine) {
		e.streamOpts = append(e.streamOpts, stream.WithSessionIDs(g))
	}
}
