// Package stream owns the subscription to the server's event stream.
//
// A Manager pulls raw messages from a Source one at a time, decodes them and
// hands each event to a Sink (the reconciler). Delivery is strictly
// sequential: the next message is not read until the sink has returned.
//
// # Failure handling
//
// A failed Subscribe or a failed read is a stream error. The Manager closes
// the subscription, asks its Policy for a delay, waits, and subscribes again.
// The Policy grants a fixed number of retries for the lifetime of the
// Manager; when they are used up the run ends with a *TerminalError and every
// terminal handler is invoked exactly once. Nothing is delivered after that.
//
// A Source may end the stream on purpose by returning ErrCompleted. A Sink
// that returns an error (the reconciler does so only after teardown) stops
// the run without retrying, as does cancelling the context.
package stream
