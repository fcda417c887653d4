package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/threadview/internal/config"
	"github.com/roach88/threadview/internal/engine"
	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/stream"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	URL        string
	Origin     string
	PostID     int64
	Sort       string
	Journal    string
	RetryDelay time.Duration
	RetryMax   int
	From       string // JSON-lines capture instead of a websocket
	Final      bool   // print only the last view

	// source builds the event source; nil means websocket or --from.
	source func(cfg config.Config, logger *slog.Logger) stream.Source
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a post's comment thread live",
		Long: `Connect to the server, request one post and keep its comment tree
up to date, printing the sorted forest after every change.

Settings come from THREADVIEW_* environment variables, then --config, then
flags. The stream is retried with a fixed delay; once the retry budget is
spent the last forest is printed and the command exits 1.

Exit codes:
  0 - Stream completed or interrupted (SIGINT/SIGTERM)
  1 - Stream failed permanently
  2 - Command error (bad config, unreachable journal, etc.)

Examples:
  threadview watch --post 42
  threadview watch --url ws://lemmy.local/api/v1/ws --post 42 --sort new
  threadview watch --post 42 --journal ./threadview.db
  threadview watch --from capture.jsonl --final --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "websocket endpoint")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "Origin header for the websocket handshake")
	cmd.Flags().Int64Var(&opts.PostID, "post", 0, "post id to watch")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "initial sort mode (hot|top|new)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path")
	cmd.Flags().DurationVar(&opts.RetryDelay, "retry-delay", 0, "delay between stream retries")
	cmd.Flags().IntVar(&opts.RetryMax, "retry-max", 0, "stream retry budget")
	cmd.Flags().StringVar(&opts.From, "from", "", "read events from a JSON-lines file instead of the server")
	cmd.Flags().BoolVar(&opts.Final, "final", false, "print only the last forest")

	return cmd
}

// applyFlags overlays the flags the user set on cfg.
func (o *WatchOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = o.URL
	}
	if flags.Changed("origin") {
		cfg.Origin = o.Origin
	}
	if flags.Changed("post") {
		cfg.PostID = o.PostID
	}
	if flags.Changed("sort") {
		mode, err := model.ParseSortMode(o.Sort)
		if err != nil {
			return err
		}
		cfg.Sort = mode
	}
	if flags.Changed("journal") {
		cfg.Journal = o.Journal
	}
	if flags.Changed("retry-delay") {
		cfg.RetryDelay = o.RetryDelay
	}
	if flags.Changed("retry-max") {
		cfg.RetryMax = o.RetryMax
	}
	return cfg.Validate()
}

func (o *WatchOptions) newSource(cfg config.Config, logger *slog.Logger) stream.Source {
	switch {
	case o.source != nil:
		return o.source(cfg, logger)
	case o.From != "":
		return stream.NewFileSource(o.From)
	default:
		return stream.NewWebSocketSource(cfg.URL, cfg.Origin, logger)
	}
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := opts.applyFlags(cmd, &cfg); err != nil {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	printer := &viewPrinter{formatter: formatter, final: opts.Final}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSortMode(cfg.Sort),
		engine.WithRankConfig(cfg.Rank),
		engine.WithCacheSize(cfg.CacheSize),
		engine.WithPolicy(stream.NewPolicy(cfg.RetryDelay, cfg.RetryMax)),
		engine.WithUpdateHandler(printer.update),
		engine.WithFailureHandler(printer.failure),
	}
	if cfg.Journal != "" {
		j, err := journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		engineOpts = append(engineOpts, engine.WithJournal(j))
	}

	src := opts.newSource(cfg, logger)
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	eng, err := engine.Open(ctx, src, cfg.PostID, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start stream", err)
	}
	formatter.VerboseLog("watching post %d (run %s)", cfg.PostID, eng.RunID())

	select {
	case <-eng.Done():
	case <-ctx.Done():
		formatter.VerboseLog("interrupted")
	}
	_ = eng.Close()
	waitErr := eng.Wait()

	if opts.Final {
		printer.flush(eng.View())
	}

	if engine.IsTerminal(waitErr) {
		if err := formatter.Error(string(engine.ErrCodeTerminalStreamFailure), waitErr.Error(), nil); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "stream failed", waitErr)
	}
	if waitErr != nil {
		return WrapExitError(ExitFailure, "stream stopped", waitErr)
	}
	return nil
}

// viewPrinter writes views and failures as they arrive. Engine handlers run
// on the stream goroutine, so writes are serialized.
type viewPrinter struct {
	formatter *OutputFormatter
	final     bool

	mu sync.Mutex
}

func (p *viewPrinter) update(v engine.View) {
	if p.final {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.formatter.Success(NewViewOutput(v))
}

func (p *viewPrinter) failure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.formatter.GetErrWriter(), "failure [%s]: %v\n", failureCode(err), err)
}

func (p *viewPrinter) flush(v engine.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.formatter.Success(NewViewOutput(v))
}

var (
	_ stream.Source = (*stream.WebSocketSource)(nil)
	_ stream.Source = (*stream.LineSource)(nil)
)
