package rank

import (
	"fmt"
	"math"
	"time"

	"github.com/araddon/dateparse"
)

// Config holds the hot rank constants.
type Config struct {
	Scale   float64 `yaml:"scale" json:"scale" env:"SCALE" envDefault:"10000"`       // multiplier so ranks stay readable
	Offset  float64 `yaml:"offset" json:"offset" env:"OFFSET" envDefault:"3"`        // added to score before the log
	Gravity float64 `yaml:"gravity" json:"gravity" env:"GRAVITY" envDefault:"1.8"` // age decay exponent
}

// DefaultConfig matches the ranking the server uses for posts.
var DefaultConfig = Config{
	Scale:   10000,
	Offset:  3,
	Gravity: 1.8,
}

// Validate rejects constants that would break monotonicity.
func (c Config) Validate() error {
	if !(c.Scale > 0) || math.IsInf(c.Scale, 0) {
		return fmt.Errorf("hot rank scale must be positive, got %v", c.Scale)
	}
	if !(c.Gravity >= 0) || math.IsInf(c.Gravity, 0) {
		return fmt.Errorf("hot rank gravity must be non-negative, got %v", c.Gravity)
	}
	if math.IsNaN(c.Offset) || math.IsInf(c.Offset, 0) {
		return fmt.Errorf("hot rank offset must be finite, got %v", c.Offset)
	}
	return nil
}

// HotRank scores a comment by votes decayed by age:
//
//	Scale * log10(max(1, score + Offset)) / (hours + 2) ^ Gravity
//
// Rank never decreases as score grows and never increases as the comment
// ages. A future publication time counts as zero hours old.
func HotRank(score int64, age time.Duration, cfg Config) float64 {
	hours := max(age.Hours(), 0)
	numerator := cfg.Scale * math.Log10(math.Max(1, float64(score)+cfg.Offset))
	return numerator / math.Pow(hours+2, cfg.Gravity)
}

// HotRankAt scores a comment published at the given timestamp as seen at now.
// Timestamps without a zone are UTC. Unparseable timestamps rank as if
// infinitely old, which is zero.
func HotRankAt(score int64, published string, now time.Time, cfg Config) float64 {
	t, ok := ParsePublished(published)
	if !ok {
		return 0
	}
	return HotRank(score, now.Sub(t), cfg)
}

// ParsePublished parses a server timestamp.
func ParsePublished(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
