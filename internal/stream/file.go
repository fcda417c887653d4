package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// maxLineSize bounds one JSON-lines record; snapshots can be large.
const maxLineSize = 16 << 20

// LineSource replays events from a JSON-lines reader: one message per line,
// blank lines skipped. The stream completes at end of input.
//
// Resubscribing continues where the previous subscription stopped.
type LineSource struct {
	open func() (io.ReadCloser, error)

	mu       sync.Mutex
	rc       io.ReadCloser
	scanner  *bufio.Scanner
	requests []int64
}

// NewFileSource replays the JSON-lines file at path. The file is opened on
// first subscription.
func NewFileSource(path string) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open event file: %w", err)
		}
		return f, nil
	}}
}

// NewReaderSource replays JSON lines read from r.
func NewReaderSource(r io.Reader) *LineSource {
	return &LineSource{open: func() (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}}
}

// Subscribe opens the input on first use.
func (s *LineSource) Subscribe(ctx context.Context) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scanner == nil {
		rc, err := s.open()
		if err != nil {
			return nil, err
		}
		s.rc = rc
		s.scanner = bufio.NewScanner(rc)
		s.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	}
	return lineSubscription{source: s}, nil
}

// RequestPost records the request; a recorded stream already contains the
// answer.
func (s *LineSource) RequestPost(ctx context.Context, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, postID)
	return nil
}

// Requests returns the post ids requested so far.
func (s *LineSource) Requests() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.requests...)
}

// Close releases the underlying input.
func (s *LineSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rc == nil {
		return nil
	}
	err := s.rc.Close()
	s.rc = nil
	return err
}

type lineSubscription struct {
	source *LineSource
}

func (l lineSubscription) Next(ctx context.Context) ([]byte, error) {
	s := l.source
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return bytes.Clone(line), nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return nil, ErrCompleted
}

func (l lineSubscription) Close() error {
	return nil
}
