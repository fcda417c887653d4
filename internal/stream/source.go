package stream

import (
	"context"
	"errors"

	"github.com/roach88/threadview/internal/protocol"
)

// ErrCompleted is returned by Subscription.Next when the source has no more
// events and will never have any.
var ErrCompleted = errors.New("stream completed")

// Source is the port to the server's event stream.
type Source interface {
	// Subscribe opens a subscription. It is called again after every stream
	// error until the retry budget runs out.
	Subscribe(ctx context.Context) (Subscription, error)

	// RequestPost asks the server to send the snapshot for postID.
	RequestPost(ctx context.Context, postID int64) error
}

// Subscription delivers raw messages in server order.
type Subscription interface {
	// Next blocks until a message arrives, the stream fails or ctx is done.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// Sink consumes decoded events.
type Sink interface {
	Apply(ctx context.Context, ev protocol.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev protocol.Event) error

// Apply calls f.
func (f SinkFunc) Apply(ctx context.Context, ev protocol.Event) error {
	return f(ctx, ev)
}
