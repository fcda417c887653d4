package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/threadview/internal/model"
)

// Scenario is one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sort is the initial sort mode. Empty means hot.
	Sort string `yaml:"sort,omitempty"`

	// Now is the frozen wall clock (RFC 3339). Empty means testutil.FixedNow.
	Now string `yaml:"now,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final view.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is exactly one of an event, a raw message or a sort change.
type Step struct {
	// Event is a wire message given as a mapping; it is sent as JSON.
	Event map[string]any `yaml:"event,omitempty"`

	// Raw is a wire message sent verbatim.
	Raw string `yaml:"raw,omitempty"`

	// Sort changes the sort mode.
	Sort string `yaml:"sort,omitempty"`
}

// Assertion validates the final view.
type Assertion struct {
	// Type selects the check; see the Assert* constants.
	Type string `yaml:"type"`

	// Forest is the expected shape (forest).
	Forest *string `yaml:"forest,omitempty"`

	// ID is the comment id (comment, comment_absent).
	ID int64 `yaml:"id,omitempty"`

	// Expect holds expected field values, subset match (comment, post, community).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (comments, failures).
	Count *int `yaml:"count,omitempty"`

	// Codes are the expected failure codes in order (failures).
	Codes []string `yaml:"codes,omitempty"`

	// Mode is the expected sort mode (mode).
	Mode string `yaml:"mode,omitempty"`
}

// Assertion type constants.
const (
	AssertForest        = "forest"
	AssertComment       = "comment"
	AssertCommentAbsent = "comment_absent"
	AssertPost          = "post"
	AssertCommunity     = "community"
	AssertComments      = "comments"
	AssertFailures      = "failures"
	AssertMode          = "mode"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Sort != "" {
		if _, err := model.ParseSortMode(s.Sort); err != nil {
			return fmt.Errorf("sort: %w", err)
		}
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	if step.Event != nil {
		set++
		if _, ok := step.Event["op"]; !ok {
			return fmt.Errorf("steps[%d]: event needs an op", index)
		}
	}
	if step.Raw != "" {
		set++
	}
	if step.Sort != "" {
		set++
		if _, err := model.ParseSortMode(step.Sort); err != nil {
			return fmt.Errorf("steps[%d]: %w", index, err)
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of event, raw or sort is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertForest:
		if a.Forest == nil {
			return fmt.Errorf("assertions[%d]: forest is required for forest", index)
		}
	case AssertComment:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for comment", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for comment", index)
		}
	case AssertCommentAbsent:
		if a.ID == 0 {
			return fmt.Errorf("assertions[%d]: id is required for comment_absent", index)
		}
	case AssertPost, AssertCommunity:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertComments:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for comments", index)
		}
	case AssertFailures:
		if a.Count == nil && a.Codes == nil {
			return fmt.Errorf("assertions[%d]: count or codes is required for failures", index)
		}
	case AssertMode:
		if _, err := model.ParseSortMode(a.Mode); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
