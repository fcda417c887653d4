package harness

// TraceEvent records one scenario step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Type     string `json:"type"` // "event" or "sort"
	Op       string `json:"op,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Outcome  string `json:"outcome,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Revision int64  `json:"revision"`
	Forest   string `json:"forest"`
}

// Final is the view after the last step.
type Final struct {
	Mode     string   `json:"mode"`
	Revision int64    `json:"revision"`
	Forest   string   `json:"forest"`
	Comments int      `json:"comments"`
	Failures []string `json:"failures"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Final describes the view after the last step.
	Final Final `json:"final"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
