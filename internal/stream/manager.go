package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/threadview/internal/protocol"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Manager delivers events from one Source to one Sink.
//
// Thread-safety model:
//   - Run: must be called from exactly one goroutine, at most once
//   - OnTerminalFailure, Err, Delivered: safe from any goroutine
type Manager struct {
	source   Source
	sink     Sink
	policy   *Policy
	wait     WaitFunc
	sessions SessionIDGenerator
	logger   *slog.Logger

	mu        sync.Mutex
	handlers  []func(error)
	terminal  error
	delivered int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithPolicy replaces the default retry policy.
func WithPolicy(p *Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// WithWait replaces the timer used between retries. Tests use it to avoid
// sleeping.
func WithWait(w WaitFunc) Option {
	return func(m *Manager) {
		m.wait = w
	}
}

// WithSessionIDs replaces the UUIDv7 session id generator.
func WithSessionIDs(g SessionIDGenerator) Option {
	return func(m *Manager) {
		m.sessions = g
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a Manager. Nothing happens until Run is called.
func NewManager(source Source, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		source:   source,
		sink:     sink,
		policy:   DefaultPolicy(),
		wait:     sleep,
		sessions: UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnTerminalFailure registers fn to be called once if the retry budget is
// exhausted. If that has already happened fn is called immediately.
func (m *Manager) OnTerminalFailure(fn func(error)) {
	m.mu.Lock()
	terminal := m.terminal
	if terminal == nil {
		m.handlers = append(m.handlers, fn)
	}
	m.mu.Unlock()

	if terminal != nil {
		fn(terminal)
	}
}

// Err returns the terminal error, or nil if the stream has not failed
// permanently.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminal
}

// Delivered returns the number of events handed to the sink.
func (m *Manager) Delivered() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered
}

// Run subscribes and delivers events until the source completes, the sink
// refuses an event, ctx is cancelled or the retry budget is exhausted.
//
// It returns nil on completion, the sink's error, ctx.Err(), or a
// *TerminalError respectively.
func (m *Manager) Run(ctx context.Context) error {
	for {
		session := m.sessions.Generate()
		err := m.runSession(ctx, session)

		if ctxErr := ctx.Err(); ctxErr != nil {
			m.logger.Info("stream stopping: context cancelled", "session", session)
			return ctxErr
		}

		var se *sinkError
		switch {
		case errors.Is(err, ErrCompleted):
			m.logger.Info("stream completed", "session", session, "delivered", m.Delivered())
			return nil
		case errors.As(err, &se):
			m.logger.Info("stream stopping: sink refused event", "session", session, "error", se.err)
			return se.err
		}

		delay, ok := m.policy.Next()
		if !ok {
			terr := &TerminalError{Retries: m.policy.Attempts(), Last: err}
			m.logger.Error("stream failed permanently",
				"session", session,
				"retries", terr.Retries,
				"error", err,
			)
			m.fail(terr)
			return terr
		}

		m.logger.Warn("stream error, retrying",
			"session", session,
			"error", err,
			"attempt", m.policy.Attempts(),
			"max_attempts", m.policy.MaxAttempts(),
			"delay", delay,
		)
		if err := m.wait(ctx, delay); err != nil {
			m.logger.Info("stream stopping: context cancelled", "session", session)
			return err
		}
	}
}

// runSession performs one subscription and pumps it until it fails.
func (m *Manager) runSession(ctx context.Context, session string) error {
	sub, err := m.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		if closeErr := sub.Close(); closeErr != nil {
			m.logger.Debug("close subscription", "session", session, "error", closeErr)
		}
	}()
	m.logger.Debug("subscribed", "session", session)

	for {
		raw, err := sub.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("read: connection closed: %w", err)
			}
			return err
		}

		ev := protocol.Decode(raw)
		m.logger.Debug("event received", "session", session, "op", ev.Op(), "kind", ev.Kind())
		if err := m.sink.Apply(ctx, ev); err != nil {
			return &sinkError{err: err}
		}

		m.mu.Lock()
		m.delivered++
		m.mu.Unlock()
	}
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.terminal != nil {
		m.mu.Unlock()
		return
	}
	m.terminal = err
	handlers := m.handlers
	m.handlers = nil
	m.mu.Unlock()

	for _, fn := range handlers {
		fn(err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
