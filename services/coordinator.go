// Package services holds the business logic of the coordination core:
// room membership, message dispatch, the validation state machine and
// presence relays. Every service depends only on the contract
// interfaces; durable stores and connected sessions are collaborators.
package services

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"

	"dchat/contract"
	"dchat/domain"
	"dchat/domain/event"
	"dchat/errors"
)

// RoomCoordinator manages session attachment to rooms and the
// private-room bootstrap handshake.
type RoomCoordinator struct {
	log         *slog.Logger
	users       contract.UserStore
	rooms       contract.RoomStore
	registry    contract.IRegistry
	broadcaster contract.Broadcaster
}

func NewRoomCoordinator(log *slog.Logger, users contract.UserStore, rooms contract.RoomStore,
	registry contract.IRegistry, broadcaster contract.Broadcaster) *RoomCoordinator {
	return &RoomCoordinator{
		log:         log,
		users:       users,
		rooms:       rooms,
		registry:    registry,
		broadcaster: broadcaster,
	}
}

// JoinRoom attaches a session to a room's subscriber set. Joining
// twice is a no-op and emits nothing; a first join emits one
// user_joined notice to the room. The notice is best-effort, not a
// membership ledger entry.
func (c *RoomCoordinator) JoinRoom(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID) error {
	if _, err := c.rooms.GetRoom(ctx, roomID); err != nil {
		return err
	}
	userID, ok := c.registry.UserOf(sessionID)
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, errors.ErrNotFound)
	}
	if added := c.registry.Subscribe(sessionID, roomID); !added {
		return nil
	}
	c.broadcaster.ToRoom(ctx, event.UserJoined{Room: roomID, User: userID})
	return nil
}

// LeaveRoom detaches the session; nothing is persisted.
func (c *RoomCoordinator) LeaveRoom(_ context.Context, sessionID domain.SessionID, roomID domain.RoomID) {
	c.registry.Unsubscribe(sessionID, roomID)
}

// CreateOrGetPrivateRoom resolves the private room between two users,
// creating it lazily on first contact. The canonical name makes the
// lookup idempotent; the store's unique name constraint resolves the
// race when both users trigger contact simultaneously, and the loser
// falls back to re-fetching the winner's room.
func (c *RoomCoordinator) CreateOrGetPrivateRoom(ctx context.Context, cmd domain.CreatePrivateRoomCommand) (domain.Room, error) {
	userA, err := c.users.GetUser(ctx, cmd.UserID)
	if err != nil {
		return domain.Room{}, err
	}
	userB, err := c.users.GetUser(ctx, cmd.PeerID)
	if err != nil {
		return domain.Room{}, err
	}

	kind := cmd.Kind
	if kind == "" {
		kind = domain.RoomPrivate
	}
	name := domain.PrivateRoomName(userA.Username, userB.Username)

	room, err := c.rooms.GetRoomByName(ctx, name)
	switch {
	case err == nil:
		return c.checkKind(room, kind)
	case !goerrors.Is(err, errors.ErrNotFound):
		return domain.Room{}, err
	}

	room, err = c.rooms.CreateIfAbsent(ctx, domain.Room{
		Name:         name,
		Kind:         kind,
		Participants: []domain.UserID{userA.ID, userB.ID},
	})
	if goerrors.Is(err, errors.ErrRoomNameTaken) {
		// Lost the first-contact race; the other side created it.
		room, err = c.rooms.GetRoomByName(ctx, name)
		if err != nil {
			return domain.Room{}, err
		}
		return c.checkKind(room, kind)
	}
	if err != nil {
		return domain.Room{}, err
	}

	c.log.Info("Private room created", "room_id", room.ID, "name", room.Name)

	// Both users' active sessions receive the room before either has
	// joined it, so they can subscribe right away.
	c.broadcaster.ToUsers(ctx, event.PrivateRoomCreated{Room: room}, userA.ID, userB.ID)
	return room, nil
}

// checkKind surfaces a name collision against a non-matching room kind
// as a Conflict; it is never retried automatically.
func (c *RoomCoordinator) checkKind(room domain.Room, kind domain.RoomKind) (domain.Room, error) {
	if room.Kind != kind {
		return domain.Room{}, fmt.Errorf("room %q is %s: %w", room.Name, room.Kind, errors.ErrRoomKindMismatch)
	}
	return room, nil
}
