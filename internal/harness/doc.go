// Package harness runs YAML scenarios against the engine.
//
// A scenario feeds wire events and sort changes to a fresh engine, one step at
// a time, and then checks assertions on the resulting view. Every run uses a
// frozen wall clock and an in-memory journal, so the same scenario always
// produces the same trace.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	sort: top                       # initial sort mode, default hot
//	now: "2019-04-10T12:00:00Z"     # wall clock for hot ranking, optional
//	steps:
//	  - event:                      # one wire message
//	      op: GetPost
//	      post: { id: 1, name: "hello" }
//	      comments: []
//	      community: { id: 2 }
//	      moderators: []
//	  - raw: "{not json"            # a message sent verbatim
//	  - sort: new                   # SetSortMode
//	assertions:
//	  - type: forest
//	    forest: "1[2],3"
//	  - type: comment
//	    id: 2
//	    expect: { score: 10 }
//
// # Assertion Types
//
//   - forest: the sorted forest renders as the given shape
//   - comment: the comment exists and its fields match expect (subset)
//   - comment_absent: no comment has the given id
//   - post, community: the record exists and its fields match expect (subset)
//   - comments: the flat collection holds count comments
//   - failures: count failures were reported, optionally with these codes
//   - mode: the current sort mode
//
// # Golden Files
//
// RunWithGolden compares the trace with testdata/golden/<name>.golden, stored
// as canonical JSON. Regenerate with:
//
//	go test ./internal/harness -update
package harness
