package domain

import "time"

type RoomID int64

// GlobalRoomID is the well-known singleton room, created out-of-band
// at startup.
const GlobalRoomID RoomID = 1

type RoomKind string

const (
	RoomGlobal  RoomKind = "GLOBAL"
	RoomPrivate RoomKind = "PRIVATE"
	RoomAI      RoomKind = "AI"
)

// Room names are globally unique. Participants is populated only for
// PRIVATE (and AI) rooms and holds exactly two members at creation.
type Room struct {
	ID           RoomID
	Name         string
	Kind         RoomKind
	Participants []UserID
	CreatedAt    time.Time
}

// PrivateRoomName computes the canonical name of a private room between
// two users: usernames sorted lexicographically, joined by " & ".
// Both sides of a first contact derive the same name, which makes
// lookup-by-name naturally idempotent.
func PrivateRoomName(usernameA, usernameB string) string {
	if usernameB < usernameA {
		usernameA, usernameB = usernameB, usernameA
	}
	return usernameA + " & " + usernameB
}
