package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadAll(t *testing.T) []*Scenario {
	t.Helper()
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		scenarios = append(scenarios, s)
	}
	return scenarios
}

func TestRun_Testdata(t *testing.T) {
	for _, s := range loadAll(t) {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
			assert.Len(t, result.Trace, len(s.Steps))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	for _, s := range loadAll(t) {
		first, err := Run(s)
		require.NoError(t, err)
		second, err := Run(s)
		require.NoError(t, err)

		a, err := MarshalTrace(s.Name, first)
		require.NoError(t, err)
		b, err := MarshalTrace(s.Name, second)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), s.Name)
	}
}

func TestRun_FailingAssertions(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: wrong
description: "every assertion is wrong"
sort: top
steps:
  - event:
      op: GetPost
      post: { id: 1, name: "hello" }
      comments:
        - { id: 1, content: "first", published: "2019-04-10T10:00:00", score: 5 }
      community: { id: 2 }
      moderators: []
assertions:
  - type: forest
    forest: "2"
  - type: comment
    id: 1
    expect: { content: "second" }
  - type: comment
    id: 7
    expect: { content: "x" }
  - type: comment_absent
    id: 1
  - type: post
    expect: { missing_field: 1 }
  - type: comments
    count: 4
  - type: failures
    codes: [NOT_FOUND]
  - type: mode
    mode: new
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 8)

	assert.Contains(t, result.Errors[0], "Expected: 2")
	assert.Contains(t, result.Errors[0], `Actual: 1`)
	assert.Contains(t, result.Errors[1], `content = "second"`)
	assert.Contains(t, result.Errors[2], "comment 7 present")
	assert.Contains(t, result.Errors[3], "comment 1 absent")
	assert.Contains(t, result.Errors[4], "missing_field = <missing>")
	assert.Contains(t, result.Errors[5], "4 comments")
	assert.Contains(t, result.Errors[6], "[NOT_FOUND]")
	assert.Contains(t, result.Errors[7], "Expected: new")

	// Trace context is attached to every assertion failure.
	assert.Contains(t, result.Errors[0], "[1] GetPost applied r1")
}

func TestRun_SortStepTrace(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: sort_only
description: "re-sorting an empty view still advances the revision"
steps:
  - sort: new
  - sort: new
assertions:
  - type: forest
    forest: ""
  - type: mode
    mode: new
`))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{Step: 1, Type: "sort", Mode: "new", Revision: 1}, result.Trace[0])
	assert.Equal(t, TraceEvent{Step: 2, Type: "sort", Mode: "new", Revision: 2}, result.Trace[1])
	assert.Equal(t, Final{Mode: "new", Revision: 2, Failures: []string{}}, result.Final)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
