// Package protocol decodes server messages into typed events.
//
// Every message is a JSON object carrying an "op" tag naming the server
// operation that produced it. A non-empty "error" field supersedes the tag:
// such messages, and messages that are not valid JSON at all, decode to an
// ErrorEvent so that the reconciler can surface them without touching state.
//
//	{"op":"GetPost","post":{...},"comments":[...],"community":{...},"moderators":[...]}
//	{"op":"CreateComment","comment":{...}}
//	{"op":"EditComment","error":"Couldn't edit comment"}
//
// The only message the client sends is the post request:
//
//	{"op":"GetPost","data":{"id":42}}
package protocol
