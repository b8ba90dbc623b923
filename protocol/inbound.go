// Package protocol defines the wire contract of the gateway: inbound
// frames decoded into a closed set of event types, and outbound domain
// events encoded into named frames. Handler dispatch works on the
// resulting tagged union, not on raw event-name strings, so a missing
// case is a compile-time gap rather than a silent runtime one.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"dchat/domain"
	apperrors "dchat/errors"
)

var validate = validator.New()

// Inbound is the sealed union of client frames. Only types in this
// package implement it.
type Inbound interface {
	inbound()
}

type JoinRoom struct {
	RoomID int64 `json:"roomId" validate:"required"`
	UserID int64 `json:"userId" validate:"required"`
}

type SendMessage struct {
	RoomID        int64           `json:"roomId" validate:"required"`
	UserID        int64           `json:"userId" validate:"required"`
	Content       string          `json:"content" validate:"required"`
	ReplyToID     *int64          `json:"replyToId,omitempty"`
	IsEncrypted   bool            `json:"isEncrypted,omitempty"`
	EncryptedData json.RawMessage `json:"encryptedData,omitempty"`
}

type JoinPrivate struct {
	UserID int64  `json:"userId" validate:"required"`
	PeerID int64  `json:"peerId" validate:"required"`
	Type   string `json:"type" validate:"required,oneof=PRIVATE AI"`
}

type TypingStart struct {
	RoomID int64 `json:"roomId" validate:"required"`
	UserID int64 `json:"userId" validate:"required"`
}

type TypingStop struct {
	RoomID int64 `json:"roomId" validate:"required"`
	UserID int64 `json:"userId" validate:"required"`
}

type ValidateMessage struct {
	MessageID   int64 `json:"messageId" validate:"required"`
	ValidatedBy int64 `json:"validatedBy" validate:"required"`
}

type UnvalidateMessage struct {
	MessageID     int64 `json:"messageId" validate:"required"`
	UnvalidatedBy int64 `json:"unvalidatedBy" validate:"required"`
}

type UserOnline struct {
	UserID int64 `json:"userId" validate:"required"`
}

type UserOffline struct {
	UserID int64 `json:"userId" validate:"required"`
}

func (JoinRoom) inbound()          {}
func (SendMessage) inbound()       {}
func (JoinPrivate) inbound()       {}
func (TypingStart) inbound()       {}
func (TypingStop) inbound()        {}
func (ValidateMessage) inbound()   {}
func (UnvalidateMessage) inbound() {}
func (UserOnline) inbound()        {}
func (UserOffline) inbound()       {}

// Envelope is the raw frame shape: a name plus an opaque payload.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses one inbound frame and validates its payload. Unknown
// event names and malformed or incomplete payloads are InvalidInput.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", apperrors.ErrInvalidInput)
	}

	var in Inbound
	switch env.Event {
	case "join_room":
		in = &JoinRoom{}
	case "send_message":
		in = &SendMessage{}
	case "join_private":
		in = &JoinPrivate{}
	case "typing_start":
		in = &TypingStart{}
	case "typing_stop":
		in = &TypingStop{}
	case "validate_message":
		in = &ValidateMessage{}
	case "unvalidate_message":
		in = &UnvalidateMessage{}
	case "user_online":
		in = &UserOnline{}
	case "user_offline":
		in = &UserOffline{}
	default:
		return nil, fmt.Errorf("unknown event %q: %w", env.Event, apperrors.ErrInvalidInput)
	}

	if err := json.Unmarshal(env.Payload, in); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", env.Event, apperrors.ErrInvalidInput)
	}
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Event, apperrors.ErrInvalidInput)
	}
	return deref(in), nil
}

// deref returns the union value, not the scratch pointer used for
// unmarshaling.
func deref(in Inbound) Inbound {
	switch v := in.(type) {
	case *JoinRoom:
		return *v
	case *SendMessage:
		return *v
	case *JoinPrivate:
		return *v
	case *TypingStart:
		return *v
	case *TypingStop:
		return *v
	case *ValidateMessage:
		return *v
	case *UnvalidateMessage:
		return *v
	case *UserOnline:
		return *v
	case *UserOffline:
		return *v
	default:
		return in
	}
}

// Command converts a SendMessage frame into the dispatcher's input.
func (m SendMessage) Command() domain.CreateMessageCommand {
	cmd := domain.CreateMessageCommand{
		RoomID:        domain.RoomID(m.RoomID),
		SenderID:      domain.UserID(m.UserID),
		Content:       m.Content,
		IsEncrypted:   m.IsEncrypted,
		EncryptedData: m.EncryptedData,
	}
	if m.ReplyToID != nil {
		id := domain.MessageID(*m.ReplyToID)
		cmd.ReplyToID = &id
	}
	return cmd
}
