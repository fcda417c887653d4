package stream

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// SessionIDGenerator names subscription attempts for log correlation.
type SessionIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session ids.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns predetermined ids and then "session-N".
// Safe for concurrent use.
type SequenceGenerator struct {
	mu  sync.Mutex
	ids []string
	n   int
}

// NewSequenceGenerator creates a generator yielding ids in order.
func NewSequenceGenerator(ids ...string) *SequenceGenerator {
	return &SequenceGenerator{ids: ids}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return "session-" + strconv.Itoa(g.n)
}
