package domain

import "encoding/json"

// CreateMessageCommand is the dispatcher's input for a new message.
// EncryptedData is carried opaque when IsEncrypted is set.
type CreateMessageCommand struct {
	RoomID        RoomID
	SenderID      UserID
	Content       string
	ReplyToID     *MessageID
	IsEncrypted   bool
	EncryptedData json.RawMessage
}

// CreatePrivateRoomCommand asks the coordinator for the private room
// between two users, creating it on first contact.
type CreatePrivateRoomCommand struct {
	UserID UserID
	PeerID UserID
	Kind   RoomKind
}
