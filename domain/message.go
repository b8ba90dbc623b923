// Messages are created by the dispatcher and move through a one-way
// validation lifecycle. No un-validate transition is ever persisted.
package domain

import (
	"encoding/json"
	"time"
)

type MessageID int64

type ValidationState string

const (
	StateUnvalidated ValidationState = "UNVALIDATED"
	StateValidated   ValidationState = "VALIDATED"
	StateRewarded    ValidationState = "REWARDED"
)

type Message struct {
	ID       MessageID
	RoomID   RoomID
	SenderID UserID
	// Content is plaintext, or the opaque ciphertext when IsEncrypted
	// is set. The server never decrypts or inspects it.
	Content string
	// ReplyToID references a top-level message in the same room.
	// Replies attach to a top-level message, never to another reply.
	ReplyToID   *MessageID
	IsEncrypted bool
	// EncryptedData carries algorithm-defined access-control metadata,
	// stored and forwarded bit-identical.
	EncryptedData json.RawMessage
	Likes         int
	Dislikes      int
	IsValidated   bool
	Rewarded      bool
	ValidatedBy   *UserID
	CreatedAt     time.Time
}

// State derives the validation lifecycle position from the persisted
// flags. Rewarded implies validated.
func (m Message) State() ValidationState {
	switch {
	case m.Rewarded:
		return StateRewarded
	case m.IsValidated:
		return StateValidated
	default:
		return StateUnvalidated
	}
}

func (m Message) IsReply() bool {
	return m.ReplyToID != nil
}
