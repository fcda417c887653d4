package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/threadview/internal/engine"
	"github.com/roach88/threadview/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario failures, replay mismatches, terminal stream failure
	ExitCommandError = 2 // Command error (bad paths, bad config, unreadable journal)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // engine error code or E_* command code
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// ViewOutput is the JSON form of an engine view.
type ViewOutput struct {
	Revision int64      `json:"revision"`
	Mode     string     `json:"mode"`
	Shape    string     `json:"shape"`
	Forest   []NodeJSON `json:"forest"`
}

// NodeJSON is one rendered comment with its replies.
type NodeJSON struct {
	ID       int64      `json:"id"`
	Creator  string     `json:"creator"`
	Score    int64      `json:"score"`
	Content  string     `json:"content"`
	Children []NodeJSON `json:"children,omitempty"`
}

// NewViewOutput converts a view for output.
func NewViewOutput(v engine.View) ViewOutput {
	return ViewOutput{
		Revision: v.Revision,
		Mode:     v.Mode.String(),
		Shape:    v.Forest.Shape(),
		Forest:   nodesJSON(v.Forest),
	}
}

func nodesJSON(nodes []*model.CommentNode) []NodeJSON {
	out := make([]NodeJSON, len(nodes))
	for i, n := range nodes {
		out[i] = NodeJSON{
			ID:       n.Comment.ID,
			Creator:  n.Comment.CreatorName,
			Score:    n.Comment.Score,
			Content:  n.Comment.Content,
			Children: nodesJSON(n.Children),
		}
		if len(n.Children) == 0 {
			out[i].Children = nil
		}
	}
	return out
}

// String renders the view as an indented tree, one comment per line.
func (v ViewOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "revision %d (%s)\n", v.Revision, v.Mode)
	if len(v.Forest) == 0 {
		b.WriteString("  (no comments)\n")
	}
	writeNodes(&b, v.Forest, 1)
	return strings.TrimSuffix(b.String(), "\n")
}

func writeNodes(b *strings.Builder, nodes []NodeJSON, depth int) {
	for _, n := range nodes {
		fmt.Fprintf(b, "%s#%d [%+d] %s: %s\n",
			strings.Repeat("  ", depth), n.ID, n.Score, n.Creator, firstLine(n.Content))
		writeNodes(b, n.Children, depth+1)
	}
}

// firstLine cuts multi-line content down to its first line.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

// failureCode names an engine failure for output.
func failureCode(err error) string {
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "E_UNKNOWN"
}
