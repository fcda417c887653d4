package stream

import (
	"errors"
	"fmt"
)

// TerminalError is returned once the retry budget is exhausted. No further
// events are delivered after it.
type TerminalError struct {
	// Retries is the number of retries made before giving up.
	Retries int
	// Last is the stream error that exhausted the budget.
	Last error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("stream failed permanently after %d retries: %v", e.Retries, e.Last)
}

func (e *TerminalError) Unwrap() error {
	return e.Last
}

// IsTerminal returns true if err is or wraps a *TerminalError.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}

// sinkError marks an error returned by the sink, which stops the run.
type sinkError struct {
	err error
}

func (e *sinkError) Error() string { return "sink: " + e.err.Error() }
func (e *sinkError) Unwrap() error { return e.err }
