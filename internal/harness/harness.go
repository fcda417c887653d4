package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/threadview/internal/engine"
	"github.com/roach88/threadview/internal/journal"
	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/testutil"
)

// runID groups the journal entries of a scenario run.
const runID = "scenario"

// Harness executes one scenario against a fresh engine.
type Harness struct {
	engine   *engine.Engine
	journal  *journal.Journal
	clock    *testutil.WallClock
	logger   *slog.Logger
	failures []error
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine journaling into an in-memory
// database, with the wall clock frozen at the scenario's now.
//
// Execution flow:
// 1. Create fresh in-memory journal and engine
// 2. Apply each step, recording one trace event per step
// 3. Evaluate assertions against the final view
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	now := testutil.FixedNow
	if scenario.Now != "" {
		now, err = time.Parse(time.RFC3339, scenario.Now)
		if err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
	}

	mode := model.SortHot
	if scenario.Sort != "" {
		if mode, err = model.ParseSortMode(scenario.Sort); err != nil {
			return nil, err
		}
	}

	h := &Harness{
		journal: j,
		clock:   testutil.NewWallClock(now),
		logger:  slog.New(slog.DiscardHandler), // Suppress logs in tests
	}
	h.engine = engine.New(
		engine.WithLogger(h.logger),
		engine.WithNow(h.clock.Now),
		engine.WithSortMode(mode),
		engine.WithJournal(j),
		engine.WithRunID(runID),
		engine.WithFailureHandler(func(err error) { h.failures = append(h.failures, err) }),
	)
	defer h.engine.Close()

	result := NewResult()
	if err := h.executeSteps(ctx, scenario.Steps, result); err != nil {
		return nil, fmt.Errorf("failed to execute steps: %w", err)
	}

	result.Final = h.final()
	for _, errMsg := range EvaluateAssertions(h.engine, result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeSteps applies every step in order.
//
// Event and raw steps go through the wire decoder like live traffic. Their
// op, kind and outcome come from the journal entry the engine wrote, so the
// trace shows exactly what was recorded.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) error {
	var events []int // trace indexes of event steps, in journal order

	for i, step := range steps {
		if step.Sort != "" {
			mode, err := model.ParseSortMode(step.Sort)
			if err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			if err := h.engine.SetSortMode(mode); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			view := h.engine.View()
			result.Trace = append(result.Trace, TraceEvent{
				Step:     i + 1,
				Type:     "sort",
				Mode:     view.Mode.String(),
				Revision: view.Revision,
				Forest:   view.Forest.Shape(),
			})
			continue
		}

		raw := []byte(step.Raw)
		if step.Event != nil {
			var err error
			if raw, err = json.Marshal(step.Event); err != nil {
				return fmt.Errorf("step %d: encode event: %w", i+1, err)
			}
		}
		if err := h.engine.Apply(ctx, protocol.Decode(raw)); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}

		view := h.engine.View()
		events = append(events, len(result.Trace))
		result.Trace = append(result.Trace, TraceEvent{
			Step:     i + 1,
			Type:     "event",
			Revision: view.Revision,
			Forest:   view.Forest.Shape(),
		})

		h.logger.Debug("step applied", "step", i+1, "revision", view.Revision)
	}

	entries, err := h.journal.Entries(ctx, runID)
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	if len(entries) != len(events) {
		return fmt.Errorf("journal has %d entries for %d events", len(entries), len(events))
	}
	for k, idx := range events {
		result.Trace[idx].Op = entries[k].Op
		result.Trace[idx].Kind = entries[k].Kind
		result.Trace[idx].Outcome = entries[k].Outcome
	}
	return nil
}

func (h *Harness) final() Final {
	view := h.engine.View()
	return Final{
		Mode:     view.Mode.String(),
		Revision: view.Revision,
		Forest:   view.Forest.Shape(),
		Comments: len(h.engine.Comments()),
		Failures: failureCodes(h.failures),
	}
}

// failureCodes lists the engine error code of every failure.
func failureCodes(failures []error) []string {
	codes := make([]string, 0, len(failures))
	for _, err := range failures {
		var ee *engine.Error
		if errors.As(err, &ee) {
			codes = append(codes, string(ee.Code))
		} else {
			codes = append(codes, "UNKNOWN")
		}
	}
	return codes
}
