package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"dchat/domain"
	"dchat/domain/event"
)

// MessagePayload is the wire shape of a message in outbound frames.
// EncryptedData is re-emitted bit-identical to what the sender
// provided.
type MessagePayload struct {
	ID            int64           `json:"id"`
	RoomID        int64           `json:"roomId"`
	SenderID      int64           `json:"senderId"`
	Content       string          `json:"content"`
	ReplyToID     *int64          `json:"replyToId,omitempty"`
	IsEncrypted   bool            `json:"isEncrypted"`
	EncryptedData json.RawMessage `json:"encryptedData,omitempty"`
	Likes         int             `json:"likes"`
	Dislikes      int             `json:"dislikes"`
	IsValidated   bool            `json:"isValidated"`
	Rewarded      bool            `json:"rewarded"`
	CreatedAt     int64           `json:"createdAt"`
}

// RoomPayload is the wire shape of a room in outbound frames.
type RoomPayload struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Participants []int64 `json:"participants,omitempty"`
	CreatedAt    int64   `json:"createdAt"`
}

func ToMessagePayload(m domain.Message) MessagePayload {
	p := MessagePayload{
		ID:            int64(m.ID),
		RoomID:        int64(m.RoomID),
		SenderID:      int64(m.SenderID),
		Content:       m.Content,
		IsEncrypted:   m.IsEncrypted,
		EncryptedData: m.EncryptedData,
		Likes:         m.Likes,
		Dislikes:      m.Dislikes,
		IsValidated:   m.IsValidated,
		Rewarded:      m.Rewarded,
		CreatedAt:     m.CreatedAt.UnixMilli(),
	}
	if m.ReplyToID != nil {
		p.ReplyToID = lo.ToPtr(int64(*m.ReplyToID))
	}
	return p
}

func ToRoomPayload(r domain.Room) RoomPayload {
	return RoomPayload{
		ID:   int64(r.ID),
		Name: r.Name,
		Kind: string(r.Kind),
		Participants: lo.Map(r.Participants, func(id domain.UserID, _ int) int64 {
			return int64(id)
		}),
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
}

// Encode turns a domain event into one wire frame. The frame name is
// the event's Name.
func Encode(e event.DomainEvent) ([]byte, error) {
	payload, err := payloadOf(e)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: e.Name(), Payload: raw})
}

func payloadOf(e event.DomainEvent) (any, error) {
	switch evt := e.(type) {
	case event.UserJoined:
		return struct {
			RoomID int64 `json:"roomId"`
			UserID int64 `json:"userId"`
		}{int64(evt.Room), int64(evt.User)}, nil
	case event.NewMessage:
		return ToMessagePayload(evt.Message), nil
	case event.PrivateRoomCreated:
		return ToRoomPayload(evt.Room), nil
	case event.UserTyping:
		return struct {
			RoomID int64 `json:"roomId"`
			UserID int64 `json:"userId"`
		}{int64(evt.Room), int64(evt.User)}, nil
	case event.UserStoppedTyping:
		return struct {
			RoomID int64 `json:"roomId"`
			UserID int64 `json:"userId"`
		}{int64(evt.Room), int64(evt.User)}, nil
	case event.MessageValidated:
		return ToMessagePayload(evt.Message), nil
	case event.MessageRewarded:
		return ToMessagePayload(evt.Message), nil
	case event.UserOnline:
		return struct {
			UserID int64 `json:"userId"`
		}{int64(evt.User)}, nil
	case event.UserOffline:
		return struct {
			UserID int64 `json:"userId"`
		}{int64(evt.User)}, nil
	case event.Error:
		return struct {
			Message string `json:"message"`
		}{evt.Message}, nil
	default:
		return nil, fmt.Errorf("no wire shape for event %q", e.Name())
	}
}
