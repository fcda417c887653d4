package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/threadview/internal/engine"
	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/stream"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Sort    string
	Now     string // RFC 3339 wall clock for hot ranking
	Verify  bool
	Journal string
}

// ReplayResult holds the replay outcome.
type ReplayResult struct {
	File              string     `json:"file"`
	Messages          int        `json:"messages"`
	Failures          []string   `json:"failures"`
	StateFingerprint  string     `json:"state_fingerprint"`
	ForestFingerprint string     `json:"forest_fingerprint"`
	View              ViewOutput `json:"view"`
	Verified          bool       `json:"verified"`
	Deterministic     bool       `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Replay a captured event stream",
		Long: `Feed a JSON-lines event capture through a fresh engine and print the
final forest with its state and forest fingerprints.

With --verify the capture is replayed a second time into another fresh
engine and both fingerprints must match.

Exit codes:
  0 - Replay succeeded (and was deterministic with --verify)
  1 - Replays diverged
  2 - Command error (unreadable file, bad flags, etc.)

Examples:
  threadview replay capture.jsonl
  threadview replay capture.jsonl --sort top --verify
  threadview replay capture.jsonl --journal ./replay.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Sort, "sort", "hot", "sort mode (hot|top|new)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "wall clock for hot ranking (RFC 3339, default current time)")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "replay twice and compare fingerprints")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the replay into this SQLite journal")

	return cmd
}

func runReplay(cmd *cobra.Command, opts *ReplayOptions, path string) error {
	ctx := cmd.Context()

	mode, err := model.ParseSortMode(opts.Sort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid sort", err)
	}
	now := time.Now()
	if opts.Now != "" {
		if now, err = time.Parse(time.RFC3339, opts.Now); err != nil {
			return WrapExitError(ExitCommandError, "invalid --now", err)
		}
	}

	messages, err := readCapture(ctx, path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read capture", err)
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	var failures []string
	base := []engine.Option{
		engine.WithLogger(logger),
		engine.WithSortMode(mode),
		engine.WithNow(func() time.Time { return now }),
	}

	first := append(base[:len(base):len(base)],
		engine.WithFailureHandler(func(err error) { failures = append(failures, failureCode(err)) }),
	)
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer j.Close()
		first = append(first, engine.WithJournal(j))
	}

	eng, err := engine.Replay(ctx, messages, first...)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}
	state, forest, err := eng.Fingerprints()
	if err != nil {
		return WrapExitError(ExitCommandError, "fingerprint failed", err)
	}

	result := ReplayResult{
		File:              path,
		Messages:          len(messages),
		Failures:          failures,
		StateFingerprint:  state,
		ForestFingerprint: forest,
		View:              NewViewOutput(eng.View()),
		Deterministic:     true,
	}
	if result.Failures == nil {
		result.Failures = []string{}
	}

	if opts.Verify {
		again, err := engine.Replay(ctx, messages, base...)
		if err != nil {
			return WrapExitError(ExitCommandError, "verification replay failed", err)
		}
		state2, forest2, err := again.Fingerprints()
		if err != nil {
			return WrapExitError(ExitCommandError, "fingerprint failed", err)
		}
		result.Verified = true
		result.Deterministic = state == state2 && forest == forest2
	}

	if opts.Format == "json" {
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(CLIResponse{Status: "ok", Data: result}); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replays produced different fingerprints")
	}
	return nil
}

// readCapture reads every message of a JSON-lines capture.
func readCapture(ctx context.Context, path string) ([][]byte, error) {
	src := stream.NewFileSource(path)
	defer src.Close()

	sub, err := src.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	var messages [][]byte
	for {
		msg, err := sub.Next(ctx)
		if errors.Is(err, stream.ErrCompleted) {
			return messages, nil
		}
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, result.View)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Messages: %d, failures: %d\n", result.Messages, len(result.Failures))
	fmt.Fprintf(w, "State:  %s\n", result.StateFingerprint)
	fmt.Fprintf(w, "Forest: %s\n", result.ForestFingerprint)
	if !result.Verified {
		return
	}
	if result.Deterministic {
		fmt.Fprintln(w, "✓ Replay is deterministic")
	} else {
		fmt.Fprintln(w, "✗ Replays diverged")
	}
}
