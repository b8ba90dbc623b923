package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dchat/domain"
	"dchat/domain/event"
	"dchat/errors"
	"dchat/mocks"
)

func TestRoomCoordinator_JoinRoom_First_Join_Announces(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	rooms := mocks.NewMockRoomStore(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	coordinator := NewRoomCoordinator(log, users, rooms, registry, broadcaster)

	sessionID := domain.SessionID(uuid.NewString())
	userID := domain.UserID(7)
	roomID := domain.RoomID(1)

	rooms.EXPECT().GetRoom(ctx, roomID).Return(domain.Room{ID: roomID, Name: "global"}, nil)
	registry.EXPECT().UserOf(sessionID).Return(userID, true)
	registry.EXPECT().Subscribe(sessionID, roomID).Return(true)
	broadcaster.EXPECT().ToRoom(ctx, event.UserJoined{Room: roomID, User: userID})

	err := coordinator.JoinRoom(ctx, sessionID, roomID)
	req.NoError(err)
}

func TestRoomCoordinator_JoinRoom_Twice_Emits_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomStore(ctrl)
	registry := mocks.NewMockIRegistry(ctrl)
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	coordinator := NewRoomCoordinator(log, mocks.NewMockUserStore(ctrl), rooms, registry, broadcaster)

	sessionID := domain.SessionID(uuid.NewString())
	roomID := domain.RoomID(1)

	rooms.EXPECT().GetRoom(ctx, roomID).Return(domain.Room{ID: roomID}, nil)
	registry.EXPECT().UserOf(sessionID).Return(domain.UserID(7), true)
	// Already subscribed: no user_joined is broadcast
	registry.EXPECT().Subscribe(sessionID, roomID).Return(false)

	err := coordinator.JoinRoom(ctx, sessionID, roomID)
	req.NoError(err)
}

func TestRoomCoordinator_LeaveRoom_Detaches_Silently(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	coordinator := NewRoomCoordinator(log, mocks.NewMockUserStore(ctrl),
		mocks.NewMockRoomStore(ctrl), registry, mocks.NewMockBroadcaster(ctrl))

	sessionID := domain.SessionID(uuid.NewString())
	roomID := domain.RoomID(1)

	// Only the subscription is dropped: no broadcast, no store access
	registry.EXPECT().Unsubscribe(sessionID, roomID)

	coordinator.LeaveRoom(ctx, sessionID, roomID)
	req.True(ctrl.Satisfied())
}

func TestRoomCoordinator_JoinRoom_Unknown_Room(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomStore(ctrl)
	coordinator := NewRoomCoordinator(log, mocks.NewMockUserStore(ctrl), rooms,
		mocks.NewMockIRegistry(ctrl), mocks.NewMockBroadcaster(ctrl))

	roomID := domain.RoomID(404)
	rooms.EXPECT().GetRoom(ctx, roomID).
		Return(domain.Room{}, fmt.Errorf("room %d: %w", roomID, errors.ErrNotFound))

	err := coordinator.JoinRoom(ctx, domain.SessionID(uuid.NewString()), roomID)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRoomCoordinator_CreateOrGetPrivateRoom_First_Contact(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	rooms := mocks.NewMockRoomStore(ctrl)
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	coordinator := NewRoomCoordinator(log, users, rooms, mocks.NewMockIRegistry(ctrl), broadcaster)

	alice := domain.User{ID: 1, Username: "alice"}
	bob := domain.User{ID: 2, Username: "bob"}
	created := domain.Room{ID: 5, Name: "alice & bob", Kind: domain.RoomPrivate,
		Participants: []domain.UserID{1, 2}}

	users.EXPECT().GetUser(ctx, alice.ID).Return(alice, nil)
	users.EXPECT().GetUser(ctx, bob.ID).Return(bob, nil)
	rooms.EXPECT().GetRoomByName(ctx, "alice & bob").
		Return(domain.Room{}, fmt.Errorf("room: %w", errors.ErrNotFound))
	rooms.EXPECT().CreateIfAbsent(ctx, domain.Room{
		Name:         "alice & bob",
		Kind:         domain.RoomPrivate,
		Participants: []domain.UserID{1, 2},
	}).Return(created, nil)
	// Both users' sessions receive the room before either joined it
	broadcaster.EXPECT().ToUsers(ctx, event.PrivateRoomCreated{Room: created}, alice.ID, bob.ID)

	room, err := coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
		UserID: alice.ID, PeerID: bob.ID,
	})
	req.NoError(err)
	req.Equal(created, room)
}

func TestRoomCoordinator_CreateOrGetPrivateRoom_Already_Exists(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	rooms := mocks.NewMockRoomStore(ctrl)
	coordinator := NewRoomCoordinator(log, users, rooms, mocks.NewMockIRegistry(ctrl),
		mocks.NewMockBroadcaster(ctrl))

	alice := domain.User{ID: 1, Username: "alice"}
	bob := domain.User{ID: 2, Username: "bob"}
	existing := domain.Room{ID: 5, Name: "alice & bob", Kind: domain.RoomPrivate}

	users.EXPECT().GetUser(ctx, alice.ID).Return(alice, nil)
	users.EXPECT().GetUser(ctx, bob.ID).Return(bob, nil)
	rooms.EXPECT().GetRoomByName(ctx, "alice & bob").Return(existing, nil)

	// No creation, no broadcast: the existing room is returned as-is
	room, err := coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
		UserID: alice.ID, PeerID: bob.ID,
	})
	req.NoError(err)
	req.Equal(existing, room)
}

func TestRoomCoordinator_CreateOrGetPrivateRoom_Lost_Race(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	rooms := mocks.NewMockRoomStore(ctrl)
	coordinator := NewRoomCoordinator(log, users, rooms, mocks.NewMockIRegistry(ctrl),
		mocks.NewMockBroadcaster(ctrl))

	alice := domain.User{ID: 1, Username: "alice"}
	bob := domain.User{ID: 2, Username: "bob"}
	winners := domain.Room{ID: 5, Name: "alice & bob", Kind: domain.RoomPrivate}

	users.EXPECT().GetUser(ctx, alice.ID).Return(alice, nil)
	users.EXPECT().GetUser(ctx, bob.ID).Return(bob, nil)
	rooms.EXPECT().GetRoomByName(ctx, "alice & bob").
		Return(domain.Room{}, fmt.Errorf("room: %w", errors.ErrNotFound))
	// The other side created the room between our lookup and our create
	rooms.EXPECT().CreateIfAbsent(ctx, gomock.Any()).
		Return(domain.Room{}, errors.ErrRoomNameTaken)
	rooms.EXPECT().GetRoomByName(ctx, "alice & bob").Return(winners, nil)

	room, err := coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
		UserID: alice.ID, PeerID: bob.ID,
	})
	req.NoError(err)
	req.Equal(winners, room)
}

func TestRoomCoordinator_CreateOrGetPrivateRoom_Kind_Mismatch(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	rooms := mocks.NewMockRoomStore(ctrl)
	coordinator := NewRoomCoordinator(log, users, rooms, mocks.NewMockIRegistry(ctrl),
		mocks.NewMockBroadcaster(ctrl))

	alice := domain.User{ID: 1, Username: "alice"}
	bob := domain.User{ID: 2, Username: "bob"}

	users.EXPECT().GetUser(ctx, alice.ID).Return(alice, nil)
	users.EXPECT().GetUser(ctx, bob.ID).Return(bob, nil)
	// The canonical name already belongs to a PRIVATE room
	rooms.EXPECT().GetRoomByName(ctx, "alice & bob").
		Return(domain.Room{ID: 5, Name: "alice & bob", Kind: domain.RoomPrivate}, nil)

	_, err := coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
		UserID: alice.ID, PeerID: bob.ID, Kind: domain.RoomAI,
	})
	req.ErrorIs(err, errors.ErrRoomKindMismatch)
}

func TestRoomCoordinator_CreateOrGetPrivateRoom_Unknown_Peer(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	coordinator := NewRoomCoordinator(log, users, mocks.NewMockRoomStore(ctrl),
		mocks.NewMockIRegistry(ctrl), mocks.NewMockBroadcaster(ctrl))

	users.EXPECT().GetUser(ctx, domain.UserID(1)).Return(domain.User{ID: 1, Username: "alice"}, nil)
	users.EXPECT().GetUser(ctx, domain.UserID(404)).
		Return(domain.User{}, fmt.Errorf("user 404: %w", errors.ErrNotFound))

	_, err := coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
		UserID: domain.UserID(1), PeerID: domain.UserID(404),
	})
	req.ErrorIs(err, errors.ErrNotFound)
}
