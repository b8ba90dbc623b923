package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"dchat/contract"
	"dchat/domain"
	"dchat/domain/event"
)

// Broadcaster fans outbound events to sink scopes resolved through the
// registry. Delivery is best-effort: a sink that rejects an event is
// logged and skipped, never retried. A message that fails to reach a
// subscriber after persistence is not re-sent; subscribers recover by
// refetching room history.
type Broadcaster struct {
	log      *slog.Logger
	registry contract.IRegistry
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry) *Broadcaster {
	return &Broadcaster{log: log, registry: registry}
}

func (b *Broadcaster) ToRoom(ctx context.Context, e event.RoomScoped, exclude ...domain.SessionID) {
	b.fanout(ctx, b.registry.SinksForRoom(e.RoomID(), exclude...), e)
}

func (b *Broadcaster) ToUsers(ctx context.Context, e event.DomainEvent, userIDs ...domain.UserID) {
	b.fanout(ctx, b.registry.SinksForUsers(userIDs...), e)
}

func (b *Broadcaster) ToAll(ctx context.Context, e event.DomainEvent, exclude ...domain.SessionID) {
	b.fanout(ctx, b.registry.AllSinks(exclude...), e)
}

// fanout One sink for each live subscriber
func (b *Broadcaster) fanout(ctx context.Context, sinks []contract.EventSink, e event.DomainEvent) {
	for _, sink := range sinks {
		if err := sink.Consume(ctx, e); err != nil {
			b.log.Debug(fmt.Sprintf("Sink rejected event %s", e.Name()), "error", err)
		}
	}
}
