package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/threadview/internal/protocol"
)

// ErrClosed is returned by mutating calls after Close.
var ErrClosed = errors.New("engine closed")

// Error is a failure reported by the reconciler.
//
// Reconciliation never stops on an Error. Non-fatal ones are logged and passed
// to OnFailure handlers; a terminal one is returned from Wait.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Op is the wire operation that caused the error, if any.
	Op protocol.Op

	// CommentID identifies the affected comment, if any.
	CommentID int64

	// Err is the underlying error, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeErrorEvent indicates the server flagged an operation as failed,
	// or sent a message that could not be decoded.
	ErrCodeErrorEvent ErrorCode = "ERROR_EVENT"

	// ErrCodeNotFound indicates a patch targeted a record that does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeOrphanParent indicates a comment referenced a missing parent and
	// was shown as a root.
	ErrCodeOrphanParent ErrorCode = "ORPHAN_PARENT"

	// ErrCodeCycleBroken indicates a parent cycle was cut.
	ErrCodeCycleBroken ErrorCode = "CYCLE_BROKEN"

	// ErrCodeDuplicateComment indicates a repeated comment id was dropped.
	ErrCodeDuplicateComment ErrorCode = "DUPLICATE_COMMENT"

	// ErrCodeTerminalStreamFailure indicates the stream gave up retrying.
	ErrCodeTerminalStreamFailure ErrorCode = "TERMINAL_STREAM_FAILURE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.CommentID != 0:
		return fmt.Sprintf("%s: %s (op=%s, comment=%d)", e.Code, e.Message, e.Op, e.CommentID)
	case e.Op != "":
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	case e.CommentID != 0:
		return fmt.Sprintf("%s: %s (comment=%d)", e.Code, e.Message, e.CommentID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsErrorEvent returns true if err reports a server error event.
func IsErrorEvent(err error) bool {
	return hasCode(err, ErrCodeErrorEvent)
}

// IsNotFound returns true if err reports a patch on a missing record.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsTerminal returns true if err reports that the stream gave up.
func IsTerminal(err error) bool {
	return hasCode(err, ErrCodeTerminalStreamFailure)
}

// IsClosed returns true if err is or wraps ErrClosed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

func newErrorEvent(ev protocol.ErrorEvent) *Error {
	msg := ev.Message
	if ev.Malformed {
		msg = "malformed message: " + msg
	}
	return &Error{Code: ErrCodeErrorEvent, Message: msg, Op: ev.Operation, Err: ev}
}

func newNotFound(op protocol.Op, commentID int64, err error) *Error {
	return &Error{Code: ErrCodeNotFound, Message: err.Error(), Op: op, CommentID: commentID, Err: err}
}

func newTerminal(err error) *Error {
	return &Error{Code: ErrCodeTerminalStreamFailure, Message: "stream failed permanently", Err: err}
}
