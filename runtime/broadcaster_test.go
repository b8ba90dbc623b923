package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dchat/contract"
	"dchat/domain"
	"dchat/domain/event"
	"dchat/mocks"
)

func TestBroadcaster_ToRoom_Delivers_To_Every_Sink(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	sink1 := mocks.NewMockEventSink(ctrl)
	sink2 := mocks.NewMockEventSink(ctrl)

	roomID := domain.RoomID(1)
	e := event.UserTyping{Room: roomID, User: domain.UserID(7)}

	// The event carries its own room scope
	registry.EXPECT().
		SinksForRoom(roomID).
		Return([]contract.EventSink{sink1, sink2})
	sink1.EXPECT().Consume(ctx, e).Return(nil)
	sink2.EXPECT().Consume(ctx, e).Return(nil)

	broadcaster := NewBroadcaster(slog.Default(), registry)
	broadcaster.ToRoom(ctx, e)

	req.True(ctrl.Satisfied())
}

func TestBroadcaster_Rejected_Sink_Does_Not_Stop_Fanout(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	full := mocks.NewMockEventSink(ctrl)
	healthy := mocks.NewMockEventSink(ctrl)

	e := event.UserOnline{User: domain.UserID(7)}

	registry.EXPECT().
		AllSinks().
		Return([]contract.EventSink{full, healthy})
	// The first sink refuses the event: the second still receives it
	full.EXPECT().Consume(ctx, e).Return(fmt.Errorf("buffer full"))
	healthy.EXPECT().Consume(ctx, e).Return(nil)

	broadcaster := NewBroadcaster(slog.Default(), registry)
	broadcaster.ToAll(ctx, e)

	req.True(ctrl.Satisfied())
}

func TestBroadcaster_ToUsers_Resolves_Through_Registry(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)

	e := event.PrivateRoomCreated{Room: domain.Room{ID: 3, Name: "alice & bob"}}

	registry.EXPECT().
		SinksForUsers(domain.UserID(1), domain.UserID(2)).
		Return([]contract.EventSink{sink})
	sink.EXPECT().Consume(ctx, e).Return(nil)

	broadcaster := NewBroadcaster(slog.Default(), registry)
	broadcaster.ToUsers(ctx, e, domain.UserID(1), domain.UserID(2))

	req.True(ctrl.Satisfied())
}
