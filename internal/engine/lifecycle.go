package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/stream"
)

// Open creates an engine for postID, asks src for the post once and starts
// delivering events from src in the background.
//
// The returned engine runs until ctx is cancelled, the source completes, the
// retry budget is exhausted or Close is called. Use Wait to block for that.
func Open(ctx context.Context, src stream.Source, postID int64, opts ...Option) (*Engine, error) {
	e := New(opts...)

	if err := src.RequestPost(ctx, postID); err != nil {
		return nil, fmt.Errorf("request post %d: %w", postID, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	mopts := append([]stream.Option{stream.WithLogger(e.logger)}, e.streamOpts...)
	e.manager = stream.NewManager(src, streamSink{e}, mopts...)
	e.manager.OnTerminalFailure(func(err error) {
		e.streaming.Store(true)
		defer e.streaming.Store(false)
		e.terminalFailed(err)
	})
	e.cancel = cancel
	e.done = make(chan struct{})

	e.logger.Info("engine started", "post_id", postID, "run", e.run, "mode", e.SortMode())

	go func() {
		defer close(e.done)
		err := e.manager.Run(runCtx)
		e.mu.Lock()
		e.runErr = err
		e.mu.Unlock()
	}()

	return e, nil
}

// Wait blocks until the stream started by Open stops. It returns nil when the
// source completed or the engine was closed, and an error satisfying
// IsTerminal when the retry budget was exhausted. Without Open it returns nil
// immediately.
func (e *Engine) Wait() error {
	if e.done == nil {
		return nil
	}
	<-e.done

	e.mu.RLock()
	err := e.runErr
	closed := e.closed
	e.mu.RUnlock()

	switch {
	case err == nil:
		return nil
	case stream.IsTerminal(err):
		return newTerminal(err)
	case errors.Is(err, ErrClosed):
		return nil
	case closed && errors.Is(err, context.Canceled):
		return nil
	}
	return err
}

// Done is closed when the stream started by Open stops. It is nil without
// Open.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Delivered returns the number of events delivered by the stream started by
// Open.
func (e *Engine) Delivered() int64 {
	if e.manager == nil {
		return 0
	}
	return e.manager.Delivered()
}

// Close tears the engine down: the store is invalidated so no further event
// can change it, and the stream is cancelled and awaited. The last state stays
// readable. Close is idempotent.
//
// Called from a handler running on the stream goroutine, Close cannot wait
// for that goroutine; it returns once the store is invalidated and the stream
// cancelled, and Wait reports when the stream has stopped.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.store.Invalidate()
		e.mu.Unlock()

		if e.cancel != nil {
			e.cancel()
			if !e.streaming.Load() {
				<-e.done
			}
		}
		e.logger.Info("engine closed", "run", e.run, "revision", e.Revision())
	})
	return nil
}

// streamSink marks the events the stream goroutine applies, so that handlers
// they trigger can call Close.
type streamSink struct {
	e *Engine
}

func (s streamSink) Apply(ctx context.Context, ev protocol.Event) error {
	s.e.streaming.Store(true)
	defer s.e.streaming.Store(false)
	return s.e.Apply(ctx, ev)
}
