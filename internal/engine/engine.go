package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/threadview/internal/canon"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/rank"
	"github.com/roach88/threadview/internal/store"
	"github.com/roach88/threadview/internal/stream"
	"github.com/roach88/threadview/internal/tree"
)

// View is the sorted forest published after a rebuild or re-sort.
type View struct {
	Revision int64
	Mode     model.SortMode
	Forest   model.Forest
}

// Engine reconciles events for one post.
//
// Thread-safety model:
//   - Apply: called from one goroutine at a time (the stream manager after Open)
//   - readers (Forest, Post, State, ...): safe from any goroutine
//   - SetSortMode, On*, Close, Wait: safe from any goroutine
//
// Handlers run on the goroutine that caused the update. They may call Close.
type Engine struct {
	logger    *slog.Logger
	now       func() time.Time
	rankCfg   rank.Config
	journal   Recorder
	run       string
	cacheSize int

	mu         sync.RWMutex
	store      *store.Store
	mode       model.SortMode
	base       model.Forest // unsorted, as built
	forest     model.Forest // base sorted by mode
	generation int64
	revisions  *Clock
	seq        *Clock
	cache      *forestCache
	closed     bool

	hmu              sync.Mutex
	updateHandlers   []func(View)
	failureHandlers  []func(error)
	terminalHandlers []func(error)
	terminal         error

	// Set by Open.
	streamOpts []stream.Option
	manager    *stream.Manager
	cancel     context.CancelFunc
	done       chan struct{}
	runErr     error
	closeOnce  sync.Once
	streaming  atomic.Bool // the stream goroutine is inside Apply or a terminal handler
}

// New creates an engine with an empty store and no stream. Feed it with
// Apply, or use Open to attach a source.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		now:       time.Now,
		rankCfg:   rank.DefaultConfig,
		cacheSize: DefaultCacheSize,
		store:     store.New(),
		mode:      model.SortHot,
		base:      model.Forest{},
		forest:    model.Forest{},
		revisions: NewClock(),
		seq:       NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if !e.mode.Valid() {
		e.logger.Warn("invalid sort mode, using hot", "mode", int(e.mode))
		e.mode = model.SortHot
	}
	if err := e.rankCfg.Validate(); err != nil {
		e.logger.Warn("invalid rank config, using defaults", "error", err)
		e.rankCfg = rank.DefaultConfig
	}
	if e.run == "" {
		e.run = stream.UUIDv7Generator{}.Generate()
	}
	e.cache = newForestCache(e.cacheSize)
	return e
}

// RunID returns the id grouping this engine's journal entries.
func (e *Engine) RunID() string {
	return e.run
}

// Forest returns a copy of the current sorted forest.
func (e *Engine) Forest() model.Forest {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.forest.Clone()
}

// View returns the current revision, mode and forest together.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.viewLocked()
}

// SortMode returns the current sort mode.
func (e *Engine) SortMode() model.SortMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Revision returns the number of rebuilds and re-sorts so far.
func (e *Engine) Revision() int64 {
	return e.revisions.Current()
}

// Post returns a copy of the post, if a snapshot has arrived.
func (e *Engine) Post() (model.Post, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Post()
}

// Community returns a copy of the community, if a snapshot has arrived.
func (e *Engine) Community() (model.Community, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Community()
}

// Moderators returns a copy of the moderator list.
func (e *Engine) Moderators() []model.Moderator {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Moderators()
}

// Comments returns the flat comment collection in arrival order, newest
// insertions first.
func (e *Engine) Comments() []model.Comment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Comments()
}

// State returns a detached copy of the whole store.
func (e *Engine) State() store.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Snapshot()
}

// Fingerprints returns the state and forest fingerprints of the current view.
func (e *Engine) Fingerprints() (state, forest string, err error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fingerprintsLocked()
}

// SetSortMode re-sorts the existing forest without rebuilding it. Setting the
// current mode again re-sorts too, which refreshes Hot ranks.
func (e *Engine) SetSortMode(m model.SortMode) error {
	if !m.Valid() {
		return fmt.Errorf("set sort mode: invalid mode %d", int(m))
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.mode = m
	e.forest = e.sortLocked()
	view := e.advanceLocked()
	e.mu.Unlock()

	e.logger.Debug("sort mode changed", "mode", m, "revision", view.Revision)
	e.notifyUpdate(view)
	return nil
}

// OnUpdate registers fn to receive every new View.
func (e *Engine) OnUpdate(fn func(View)) {
	e.hmu.Lock()
	defer e.hmu.Unlock()
	e.updateHandlers = append(e.updateHandlers, fn)
}

// OnFailure registers fn to receive non-fatal failures: server error events,
// malformed messages and patches on missing records. Each is an *Error.
func (e *Engine) OnFailure(fn func(error)) {
	e.hmu.Lock()
	defer e.hmu.Unlock()
	e.failureHandlers = append(e.failureHandlers, fn)
}

// OnTerminalFailure registers fn to be called once when the stream gives up.
// If that has already happened fn is called immediately.
func (e *Engine) OnTerminalFailure(fn func(error)) {
	e.hmu.Lock()
	terminal := e.terminal
	if terminal == nil {
		e.terminalHandlers = append(e.terminalHandlers, fn)
	}
	e.hmu.Unlock()

	if terminal != nil {
		fn(terminal)
	}
}

// rebuildLocked derives a fresh forest from the store and sorts it.
func (e *Engine) rebuildLocked() View {
	res := tree.Build(e.store.Comments())
	for _, id := range res.Orphans {
		e.logger.Warn("comment parent missing, shown as root", "code", ErrCodeOrphanParent, "comment_id", id)
	}
	for _, id := range res.Cycles {
		e.logger.Warn("comment parent cycle cut", "code", ErrCodeCycleBroken, "comment_id", id)
	}
	for _, id := range res.Duplicates {
		e.logger.Warn("duplicate comment left out", "code", ErrCodeDuplicateComment, "comment_id", id)
	}

	e.base = res.Forest
	e.generation++
	e.forest = e.sortLocked()
	return e.advanceLocked()
}

func (e *Engine) sortLocked() model.Forest {
	key := forestKey{generation: e.generation, mode: e.mode}
	if f, ok := e.cache.get(key); ok {
		return f
	}
	f := rank.Sort(e.base, rank.For(e.mode, e.now(), e.rankCfg))
	e.cache.add(key, f)
	return f
}

func (e *Engine) advanceLocked() View {
	e.revisions.Next()
	return e.viewLocked()
}

func (e *Engine) viewLocked() View {
	return View{Revision: e.revisions.Current(), Mode: e.mode, Forest: e.forest.Clone()}
}

func (e *Engine) fingerprintsLocked() (string, string, error) {
	state, err := canon.Fingerprint(canon.DomainState, e.store.Snapshot())
	if err != nil {
		return "", "", err
	}
	forest, err := canon.Fingerprint(canon.DomainForest, e.forest)
	if err != nil {
		return "", "", err
	}
	return state, forest, nil
}

func (e *Engine) notifyUpdate(v View) {
	e.hmu.Lock()
	handlers := append([]func(View){}, e.updateHandlers...)
	e.hmu.Unlock()
	for _, fn := range handlers {
		fn(v)
	}
}

func (e *Engine) notifyFailure(err error) {
	e.hmu.Lock()
	handlers := append([]func(error){}, e.failureHandlers...)
	e.hmu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

func (e *Engine) terminalFailed(err error) {
	e.hmu.Lock()
	if e.terminal != nil {
		e.hmu.Unlock()
		return
	}
	e.terminal = err
	handlers := e.terminalHandlers
	e.terminalHandlers = nil
	e.hmu.Unlock()

	e.logger.Error("stream failed permanently, keeping last state", "error", err, "revision", e.Revision())
	for _, fn := range handlers {
		fn(err)
	}
}
