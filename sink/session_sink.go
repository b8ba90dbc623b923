// Package sink provides the per-connection delivery buffer between the
// broadcast fan-out and a session's write pump.
package sink

import (
	"context"
	"fmt"

	"dchat/domain/event"
)

// ErrBackpressure reports a full delivery buffer; the event is lost
// for this session only.
var ErrBackpressure = fmt.Errorf("session buffer full, event dropped")

// SessionSink decouples fan-out from the socket write: Consume is
// called by the broadcaster, the gateway's write pump drains Events.
// One sink per connection keeps a slow client from stalling the rest
// of the room.
type SessionSink struct {
	Events chan event.DomainEvent
}

func NewSessionSink(bufferSize int) *SessionSink {
	return &SessionSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume enqueues an event for delivery. A full buffer drops the
// event rather than blocking the fan-out; the client recovers by
// refetching history.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBackpressure
	}
}
