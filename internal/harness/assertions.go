package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/threadview/internal/canon"
	"github.com/roach88/threadview/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			label := event.Op
			if event.Type == "sort" {
				label = "sort " + event.Mode
			}
			fmt.Fprintf(&buf, "  [%d] %s %s r%d %q\n", event.Step, label, event.Outcome, event.Revision, event.Forest)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the engine's final
// view. Returns a slice of error messages for failed assertions.
func EvaluateAssertions(e *engine.Engine, result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertForest:
			err = assertForest(e, assertion)
		case AssertComment:
			err = assertComment(e, assertion)
		case AssertCommentAbsent:
			err = assertCommentAbsent(e, assertion)
		case AssertPost:
			err = assertPost(e, assertion)
		case AssertCommunity:
			err = assertCommunity(e, assertion)
		case AssertComments:
			err = assertComments(e, assertion)
		case AssertFailures:
			err = assertFailures(result.Final.Failures, assertion)
		case AssertMode:
			err = assertMode(e, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if ae, ok := err.(*AssertionError); ok {
			ae.Trace = result.Trace
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func assertForest(e *engine.Engine, a Assertion) error {
	got := e.Forest().Shape()
	if got != *a.Forest {
		return &AssertionError{Type: AssertForest, Expected: *a.Forest, Actual: got}
	}
	return nil
}

func assertComment(e *engine.Engine, a Assertion) error {
	for _, c := range e.Comments() {
		if c.ID == a.ID {
			return matchFields(fmt.Sprintf("comment %d", a.ID), c, a.Expect)
		}
	}
	return &AssertionError{
		Type:     AssertComment,
		Expected: fmt.Sprintf("comment %d present", a.ID),
		Actual:   "absent",
	}
}

func assertCommentAbsent(e *engine.Engine, a Assertion) error {
	for _, c := range e.Comments() {
		if c.ID == a.ID {
			return &AssertionError{
				Type:     AssertCommentAbsent,
				Expected: fmt.Sprintf("comment %d absent", a.ID),
				Actual:   "present",
			}
		}
	}
	return nil
}

func assertPost(e *engine.Engine, a Assertion) error {
	p, ok := e.Post()
	if !ok {
		return &AssertionError{Type: AssertPost, Expected: "post present", Actual: "absent"}
	}
	return matchFields("post", p, a.Expect)
}

func assertCommunity(e *engine.Engine, a Assertion) error {
	c, ok := e.Community()
	if !ok {
		return &AssertionError{Type: AssertCommunity, Expected: "community present", Actual: "absent"}
	}
	return matchFields("community", c, a.Expect)
}

func assertComments(e *engine.Engine, a Assertion) error {
	got := len(e.Comments())
	if got != *a.Count {
		return &AssertionError{
			Type:     AssertComments,
			Expected: fmt.Sprintf("%d comments", *a.Count),
			Actual:   fmt.Sprintf("%d comments", got),
		}
	}
	return nil
}

func assertFailures(codes []string, a Assertion) error {
	if a.Count != nil && len(codes) != *a.Count {
		return &AssertionError{
			Type:     AssertFailures,
			Expected: fmt.Sprintf("%d failures", *a.Count),
			Actual:   fmt.Sprintf("%d failures %v", len(codes), codes),
		}
	}
	if a.Codes != nil && !slices.Equal(codes, a.Codes) {
		return &AssertionError{
			Type:     AssertFailures,
			Expected: fmt.Sprintf("%v", a.Codes),
			Actual:   fmt.Sprintf("%v", codes),
		}
	}
	return nil
}

func assertMode(e *engine.Engine, a Assertion) error {
	got := e.SortMode().String()
	if got != a.Mode {
		return &AssertionError{Type: AssertMode, Expected: a.Mode, Actual: got}
	}
	return nil
}

// matchFields checks that record carries every expected field (subset
// match). Both sides are compared as canonical JSON, so 10 in YAML equals an
// int64 10 and null equals a nil pointer.
func matchFields(what string, record any, expected map[string]any) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	var actual map[string]json.RawMessage
	if err := json.Unmarshal(raw, &actual); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		want, err := canon.Marshal(expected[key])
		if err != nil {
			return fmt.Errorf("%s.%s: expected value: %w", what, key, err)
		}
		got := []byte("<missing>")
		if field, ok := actual[key]; ok {
			if got, err = canon.Canonicalize(field); err != nil {
				return fmt.Errorf("%s.%s: %w", what, key, err)
			}
		}
		if !bytes.Equal(want, got) {
			return &AssertionError{
				Type:     what,
				Expected: fmt.Sprintf("%s = %s", key, want),
				Actual:   fmt.Sprintf("%s = %s", key, got),
			}
		}
	}
	return nil
}
