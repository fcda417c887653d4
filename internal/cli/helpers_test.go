package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/threadview/internal/model"
	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/testutil"
)

func testComment(id, parent, score int64, published string) model.Comment {
	c := model.Comment{
		ID:          id,
		PostID:      1,
		CreatorName: "alice",
		Content:     "comment",
		Published:   published,
		Score:       score,
	}
	if parent != 0 {
		c.ParentID = model.Int64(parent)
	}
	return c
}

// captureEvents is a snapshot with 2 replying to 1, a new root 3, and an
// edit of a comment that does not exist.
func captureEvents() []protocol.Event {
	return []protocol.Event{
		protocol.InitialSnapshot{
			Post: model.Post{ID: 1, Name: "hello", CommunityID: 2, CommunityName: "main"},
			Comments: []model.Comment{
				testComment(1, 0, 5, "2019-04-10T10:00:00"),
				testComment(2, 1, 10, "2019-04-10T11:00:00"),
			},
			Community:  model.Community{ID: 2, Name: "main"},
			Moderators: []model.Moderator{},
		},
		protocol.CommentCreated{Comment: testComment(3, 0, 1, "2019-04-10T11:30:00")},
		protocol.CommentEdited{Comment: testComment(99, 0, 0, "2019-04-10T11:45:00")},
	}
}

// writeCapture writes events as a JSON-lines file and returns its path.
func writeCapture(t *testing.T, events ...protocol.Event) string {
	t.Helper()
	var buf bytes.Buffer
	for _, msg := range testutil.Messages(events...) {
		buf.Write(msg)
		buf.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
