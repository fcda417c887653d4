package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixedNow = "2019-04-10T12:00:00Z"

func TestReplay_MissingArg(t *testing.T) {
	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestReplay_MissingFile(t *testing.T) {
	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "open event file")
}

func TestReplay_BadFlags(t *testing.T) {
	path := writeCapture(t, captureEvents()...)

	_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), path, "--sort", "best")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(NewReplayCommand(&RootOptions{Format: "text"}), path, "--now", "noon")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplay_TextVerify(t *testing.T) {
	path := writeCapture(t, captureEvents()...)

	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, path, "--sort", "top", "--now", fixedNow, "--verify")
	require.NoError(t, err)

	assert.Contains(t, out, "revision 3 (top)")
	assert.Contains(t, out, "Messages: 3, failures: 1")
	assert.Contains(t, out, "State:  ")
	assert.Contains(t, out, "✓ Replay is deterministic")
}

func TestReplay_JSON(t *testing.T) {
	path := writeCapture(t, captureEvents()...)

	cmd := NewReplayCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, path, "--sort", "top", "--now", fixedNow)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Messages)
	assert.Equal(t, []string{"NOT_FOUND"}, resp.Data.Failures)
	assert.Equal(t, "1[2],3", resp.Data.View.Shape)
	assert.Len(t, resp.Data.StateFingerprint, 64)
	assert.Len(t, resp.Data.ForestFingerprint, 64)
	assert.False(t, resp.Data.Verified)
}

func TestReplay_SameCaptureSameFingerprint(t *testing.T) {
	path := writeCapture(t, captureEvents()...)

	fingerprint := func(sort string) string {
		cmd := NewReplayCommand(&RootOptions{Format: "json"})
		out, _, err := execute(cmd, path, "--sort", sort, "--now", fixedNow)
		require.NoError(t, err)
		var resp struct {
			Data ReplayResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		return resp.Data.StateFingerprint
	}

	// The state does not depend on how the forest is sorted.
	assert.Equal(t, fingerprint("top"), fingerprint("new"))
}

func TestReplay_SkipsBlankAndBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	data := "\n{not json\n\n" + `{"op":"Mystery"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, path, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "Messages: 2, failures: 1")
	assert.Contains(t, out, "(no comments)")
}

func TestReplay_WritesJournal(t *testing.T) {
	path := writeCapture(t, captureEvents()...)
	dbPath := filepath.Join(t.TempDir(), "replay.db")

	_, _, err := execute(NewReplayCommand(&RootOptions{Format: "text"}), path, "--journal", dbPath)
	require.NoError(t, err)

	out, _, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), "--journal", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "GetPost")
	assert.Contains(t, out, "not_found")
	assert.Contains(t, out, "Entries: 3 across 1 run(s)")
}
