package model

import (
	"fmt"
	"strings"
)

// SortMode selects the comment ordering of a view.
type SortMode int

const (
	// SortHot orders by decaying score (default).
	SortHot SortMode = iota
	// SortTop orders by score.
	SortTop
	// SortNew orders by publication time, newest first.
	SortNew
)

// SortModes lists every mode in display order.
var SortModes = []SortMode{SortHot, SortTop, SortNew}

func (m SortMode) String() string {
	switch m {
	case SortHot:
		return "hot"
	case SortTop:
		return "top"
	case SortNew:
		return "new"
	default:
		return fmt.Sprintf("SortMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the known modes.
func (m SortMode) Valid() bool {
	return m >= SortHot && m <= SortNew
}

// ParseSortMode parses "hot", "top" or "new" (case-insensitive).
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hot":
		return SortHot, nil
	case "top":
		return SortTop, nil
	case "new":
		return SortNew, nil
	default:
		return 0, fmt.Errorf("unknown sort mode %q: must be one of hot, top, new", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m SortMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid sort mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SortMode) UnmarshalText(text []byte) error {
	parsed, err := ParseSortMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
