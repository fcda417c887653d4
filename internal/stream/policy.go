package stream

import "time"

// Defaults match the server client: retry every 3 seconds, at most 10 times.
const (
	DefaultRetryDelay  = 3 * time.Second
	DefaultMaxAttempts = 10
)

// Policy is a fixed-delay retry budget.
//
// The budget covers the lifetime of the stream; a successful delivery does not
// refill it.
type Policy struct {
	delay       time.Duration
	maxAttempts int
	attempts    int
}

// NewPolicy creates a policy granting maxAttempts retries spaced by delay. A
// budget of zero gives up on the first stream error.
func NewPolicy(delay time.Duration, maxAttempts int) *Policy {
	return &Policy{delay: delay, maxAttempts: maxAttempts}
}

// DefaultPolicy returns a policy with DefaultRetryDelay and DefaultMaxAttempts.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultRetryDelay, DefaultMaxAttempts)
}

// Next consumes one retry. It returns the delay to wait before retrying, or
// false once the budget is exhausted.
func (p *Policy) Next() (time.Duration, bool) {
	if p.attempts >= p.maxAttempts {
		return 0, false
	}
	p.attempts++
	return p.delay, true
}

// Attempts returns the number of retries granted so far.
func (p *Policy) Attempts() int {
	return p.attempts
}

// MaxAttempts returns the size of the retry budget.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

