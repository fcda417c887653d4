package cli

import (
	"encoding/json"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/threadview/internal/engine"
	"github.com/roach88/threadview/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Journal string
	Run     string // optional - filter to one run
	Outcome string // optional - filter to one outcome
	Op      string // optional - filter to one op
	Kind    string // optional - filter to one event kind
	Verify  bool
}

// TraceEntry is one journaled reconciliation in the timeline.
type TraceEntry struct {
	Run               string `json:"run"`
	Seq               int64  `json:"seq"`
	Op                string `json:"op"`
	Kind              string `json:"kind"`
	Outcome           string `json:"outcome"`
	Revision          int64  `json:"revision"`
	SortMode          string `json:"sort_mode"`
	StateFingerprint  string `json:"state_fingerprint"`
	ForestFingerprint string `json:"forest_fingerprint,omitempty"`
}

// TraceMismatch is an entry whose replayed state differs from the journal.
type TraceMismatch struct {
	Run  string `json:"run"`
	Seq  int64  `json:"seq"`
	Op   string `json:"op"`
	Want string `json:"want"`
	Got  string `json:"got"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Runs       []string        `json:"runs"`
	Timeline   []TraceEntry    `json:"timeline"`
	Stats      TraceStats      `json:"stats"`
	Verified   bool            `json:"verified"`
	Mismatches []TraceMismatch `json:"mismatches,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEntries int            `json:"total_entries"`
	Outcomes     map[string]int `json:"outcomes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journaled reconciliations",
		Long: `List the reconciliations recorded in a journal, run by run.

Every entry shows the event's op and kind, what it did to the view, the
revision after it and the state fingerprint. With --verify each run is
re-applied to a fresh engine and every fingerprint is checked.

Exit codes:
  0 - Success (and every fingerprint matched with --verify)
  1 - Verification found mismatches
  2 - Command error (journal not found, etc.)

Examples:
  threadview trace --journal ./threadview.db
  threadview trace --journal ./threadview.db --run 0190f3c8-...
  threadview trace --journal ./threadview.db --outcome not_found
  threadview trace --journal ./threadview.db --op EditComment --kind ErrorEvent
  threadview trace --journal ./threadview.db --verify --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().StringVar(&opts.Run, "run", "", "only this run")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only entries with this outcome")
	cmd.Flags().StringVar(&opts.Op, "op", "", "only entries for this op")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only entries of this event kind")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "re-apply runs and compare state fingerprints")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	if err := checkExists(opts.Journal); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	recorded, err := j.Runs(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	runs := recorded
	if opts.Run != "" {
		runs = []string{opts.Run}
	}

	result := TraceResult{
		Runs:     runs,
		Timeline: []TraceEntry{},
		Stats:    TraceStats{Outcomes: map[string]int{}},
	}

	for _, run := range runs {
		entries, err := j.Query(ctx, journal.Filter{
			Run:     run,
			Op:      opts.Op,
			Kind:    opts.Kind,
			Outcome: opts.Outcome,
		})
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", run), err)
		}
		for _, e := range entries {
			result.Timeline = append(result.Timeline, traceEntry(e))
			result.Stats.Outcomes[e.Outcome]++
		}

		if opts.Verify && slices.Contains(recorded, run) {
			logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
			mismatches, err := engine.VerifyJournal(ctx, j, run, engine.WithLogger(logger))
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify run %s", run), err)
			}
			for _, m := range mismatches {
				result.Mismatches = append(result.Mismatches, TraceMismatch{
					Run: run, Seq: m.Seq, Op: m.Op, Want: m.Want, Got: m.Got,
				})
			}
		}
	}
	result.Stats.TotalEntries = len(result.Timeline)
	result.Verified = opts.Verify

	if opts.Format == "json" {
		if err := outputTraceJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd, result)
	}

	if len(result.Mismatches) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d journal entries did not replay to the same state", len(result.Mismatches)))
	}
	return nil
}

func traceEntry(e journal.Entry) TraceEntry {
	return TraceEntry{
		Run:               e.Run,
		Seq:               e.Seq,
		Op:                e.Op,
		Kind:              e.Kind,
		Outcome:           e.Outcome,
		Revision:          e.Revision,
		SortMode:          e.SortMode,
		StateFingerprint:  e.StateFingerprint,
		ForestFingerprint: e.ForestFingerprint,
	}
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if len(result.Mismatches) > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_MISMATCH",
			Message: fmt.Sprintf("%d mismatches", len(result.Mismatches)),
		}
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as an aligned table.
func outputTraceText(cmd *cobra.Command, result TraceResult) {
	w := cmd.OutOrStdout()
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No journal entries found.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN\tSEQ\tOP\tKIND\tOUTCOME\tREV\tSORT\tSTATE")
		for _, e := range result.Timeline {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
				e.Run, e.Seq, e.Op, e.Kind, e.Outcome, e.Revision, e.SortMode, shortHash(e.StateFingerprint))
		}
		_ = tw.Flush()
	}

	fmt.Fprintf(w, "\nEntries: %d across %d run(s)\n", result.Stats.TotalEntries, len(result.Runs))
	if !result.Verified {
		return
	}
	if len(result.Mismatches) == 0 {
		fmt.Fprintln(w, "✓ Every entry replays to the journaled state")
		return
	}
	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ %s seq %d (%s): want %s, got %s\n", m.Run, m.Seq, m.Op, shortHash(m.Want), shortHash(m.Got))
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
