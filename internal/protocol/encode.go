package protocol

import (
	"encoding/json"
	"fmt"
)

// Encode renders an event in wire form, including its op tag.
func Encode(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
	}
	if op := ev.Op(); op != "" {
		opJSON, err := json.Marshal(op)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", ev.Kind(), err)
		}
		fields["op"] = opJSON
	}
	return json.Marshal(fields)
}

// PostRequest is the command that asks the server for a post snapshot.
type PostRequest struct {
	Op   Op              `json:"op"`
	Data PostRequestData `json:"data"`
}

// PostRequestData is the payload of PostRequest.
type PostRequestData struct {
	ID int64 `json:"id"`
}

// EncodePostRequest builds the GetPost command for postID.
func EncodePostRequest(postID int64) ([]byte, error) {
	return json.Marshal(PostRequest{Op: OpGetPost, Data: PostRequestData{ID: postID}})
}
