package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/roach88/threadview/internal/protocol"
)

// WebSocketSource reads events from a websocket endpoint speaking the JSON
// protocol described in package protocol.
//
// One connection is shared by RequestPost and the current subscription. A
// closed subscription drops the connection so the next Subscribe redials.
type WebSocketSource struct {
	url    string
	origin string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSource creates a source for url. origin is sent as the Origin
// header; an empty origin uses "http://localhost/".
func NewWebSocketSource(url, origin string, logger *slog.Logger) *WebSocketSource {
	if origin == "" {
		origin = "http://localhost/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketSource{url: url, origin: origin, logger: logger}
}

// Subscribe dials if no connection is open and returns a subscription on it.
func (s *WebSocketSource) Subscribe(ctx context.Context) (Subscription, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	return &wsSubscription{source: s, conn: conn}, nil
}

// RequestPost sends the GetPost command.
func (s *WebSocketSource) RequestPost(ctx context.Context, postID int64) error {
	payload, err := protocol.EncodePostRequest(postID)
	if err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	if err := websocket.Message.Send(conn, string(payload)); err != nil {
		s.drop(conn)
		return fmt.Errorf("send post request: %w", err)
	}
	s.logger.Debug("post requested", "post_id", postID, "url", s.url)
	return nil
}

// Close closes the current connection, if any.
func (s *WebSocketSource) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (s *WebSocketSource) connect(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	cfg, err := websocket.NewConfig(s.url, s.origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	conn, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}
	s.logger.Info("websocket connected", "url", s.url)
	s.conn = conn
	return conn, nil
}

// drop closes conn and forgets it if it is still the current connection.
func (s *WebSocketSource) drop(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
}

type wsSubscription struct {
	source *WebSocketSource
	conn   *websocket.Conn
	once   sync.Once
}

type wsFrame struct {
	data []byte
	err  error
}

func (w *wsSubscription) Next(ctx context.Context) ([]byte, error) {
	frames := make(chan wsFrame, 1)
	go func() {
		var data []byte
		err := websocket.Message.Receive(w.conn, &data)
		frames <- wsFrame{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		// Closing the connection unblocks the reader goroutine.
		w.Close()
		return nil, ctx.Err()
	case f := <-frames:
		if f.err != nil {
			return nil, fmt.Errorf("websocket receive: %w", f.err)
		}
		return f.data, nil
	}
}

func (w *wsSubscription) Close() error {
	w.once.Do(func() {
		w.source.drop(w.conn)
	})
	return nil
}
