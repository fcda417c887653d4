package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/roach88/threadview/internal/protocol"
	"github.com/roach88/threadview/internal/stream"
)

// Session scripts one subscription of a ScriptedSource.
type Session struct {
	// SubscribeErr, if set, makes Subscribe fail.
	SubscribeErr error

	// Messages are delivered in order.
	Messages [][]byte

	// End is returned after the last message. A nil End blocks until the
	// context is cancelled.
	End error
}

// ScriptedSource is a stream.Source whose subscriptions follow a script.
// Subscriptions beyond the script block until cancelled.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedSource struct {
	mu         sync.Mutex
	sessions   []Session
	subscribes int
	requests   []int64
	requestErr error
}

// NewScriptedSource creates a source that plays sessions in order.
func NewScriptedSource(sessions ...Session) *ScriptedSource {
	return &ScriptedSource{sessions: sessions}
}

// FailRequests makes RequestPost return err.
func (s *ScriptedSource) FailRequests(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestErr = err
}

// Subscribe starts the next scripted session.
func (s *ScriptedSource) Subscribe(ctx context.Context) (stream.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sess Session
	if s.subscribes < len(s.sessions) {
		sess = s.sessions[s.subscribes]
	}
	s.subscribes++

	if sess.SubscribeErr != nil {
		return nil, sess.SubscribeErr
	}
	return &scriptedSubscription{session: sess}, nil
}

// RequestPost records postID.
func (s *ScriptedSource) RequestPost(ctx context.Context, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, postID)
	return s.requestErr
}

// Subscribes returns how many times Subscribe was called.
func (s *ScriptedSource) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

// Requests returns the post ids requested so far.
func (s *ScriptedSource) Requests() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.requests...)
}

type scriptedSubscription struct {
	session Session
	next    int
}

func (s *scriptedSubscription) Next(ctx context.Context) ([]byte, error) {
	if s.next < len(s.session.Messages) {
		msg := s.session.Messages[s.next]
		s.next++
		return msg, nil
	}
	if s.session.End != nil {
		return nil, s.session.End
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedSubscription) Close() error {
	return nil
}

// Messages encodes events into wire messages, failing the test helper's
// caller via panic on encoding errors (events built in tests always encode).
func Messages(events ...protocol.Event) [][]byte {
	out := make([][]byte, len(events))
	for i, ev := range events {
		raw, err := protocol.Encode(ev)
		if err != nil {
			panic(err)
		}
		out[i] = raw
	}
	return out
}

// RawMessage marshals v as a raw wire message.
func RawMessage(v any) []byte {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}

// NoWait is a stream.WaitFunc that records delays instead of sleeping.
type NoWait struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Wait records d and returns immediately unless ctx is done.
func (w *NoWait) Wait(ctx context.Context, d time.Duration) error {
	w.mu.Lock()
	w.delays = append(w.delays, d)
	w.mu.Unlock()
	return ctx.Err()
}

// Delays returns the recorded delays.
func (w *NoWait) Delays() []time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]time.Duration(nil), w.delays...)
}
