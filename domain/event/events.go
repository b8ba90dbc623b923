package event

import (
	"dchat/domain"
)

// UserJoined is a best-effort notice to a room that a session attached,
// not a membership ledger entry.
type UserJoined struct {
	Room domain.RoomID
	User domain.UserID
}

func (e UserJoined) Name() string          { return "user_joined" }
func (e UserJoined) RoomID() domain.RoomID { return e.Room }

type NewMessage struct {
	Message domain.Message
}

func (e NewMessage) Name() string          { return "new_message" }
func (e NewMessage) RoomID() domain.RoomID { return e.Message.RoomID }

// PrivateRoomCreated is pushed to every active session of both
// participants, even before they formally join the room.
type PrivateRoomCreated struct {
	Room domain.Room
}

func (e PrivateRoomCreated) Name() string { return "private_room_created" }

type UserTyping struct {
	Room domain.RoomID
	User domain.UserID
}

func (e UserTyping) Name() string          { return "user_typing" }
func (e UserTyping) RoomID() domain.RoomID { return e.Room }

type UserStoppedTyping struct {
	Room domain.RoomID
	User domain.UserID
}

func (e UserStoppedTyping) Name() string          { return "user_stopped_typing" }
func (e UserStoppedTyping) RoomID() domain.RoomID { return e.Room }

type MessageValidated struct {
	Message domain.Message
}

func (e MessageValidated) Name() string          { return "message_validated" }
func (e MessageValidated) RoomID() domain.RoomID { return e.Message.RoomID }

// MessageRewarded reports the second, separately observable transition
// of the validation lifecycle. Emission means "marked for reward", not
// "tokens confirmed on-chain".
type MessageRewarded struct {
	Message domain.Message
}

func (e MessageRewarded) Name() string          { return "message_rewarded" }
func (e MessageRewarded) RoomID() domain.RoomID { return e.Message.RoomID }

type UserOnline struct {
	User domain.UserID
}

func (e UserOnline) Name() string { return "user_online" }

type UserOffline struct {
	User domain.UserID
}

func (e UserOffline) Name() string { return "user_offline" }

// Error is delivered only to the originating session, never broadcast.
type Error struct {
	Message string
}

func (e Error) Name() string { return "error" }
