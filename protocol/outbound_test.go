package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dchat/domain"
	"dchat/domain/event"
)

func TestEncode_NewMessage_Frame(t *testing.T) {
	req := require.New(t)

	createdAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	replyTo := domain.MessageID(4)
	message := domain.Message{
		ID:        10,
		RoomID:    1,
		SenderID:  7,
		Content:   "hello",
		ReplyToID: &replyTo,
		Likes:     3,
		CreatedAt: createdAt,
	}

	data, err := Encode(event.NewMessage{Message: message})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(data, &env))
	req.Equal("new_message", env.Event)

	var payload MessagePayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal(int64(10), payload.ID)
	req.Equal(int64(1), payload.RoomID)
	req.Equal(int64(7), payload.SenderID)
	req.Equal("hello", payload.Content)
	req.Equal(int64(4), *payload.ReplyToID)
	req.Equal(3, payload.Likes)
	req.Equal(createdAt.UnixMilli(), payload.CreatedAt)
}

func TestEncode_Encrypted_Message_Passes_Data_Through(t *testing.T) {
	req := require.New(t)

	metadata := json.RawMessage(`{"alg":"aes-256-gcm","keys":{"7":"wrapped"}}`)
	message := domain.Message{
		ID:            10,
		RoomID:        1,
		SenderID:      7,
		Content:       "grkRI2eSJyLjzpbo77W1kA==",
		IsEncrypted:   true,
		EncryptedData: metadata,
		CreatedAt:     time.Now(),
	}

	data, err := Encode(event.NewMessage{Message: message})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(data, &env))

	var payload MessagePayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.True(payload.IsEncrypted)
	req.JSONEq(string(metadata), string(payload.EncryptedData))
}

func TestEncode_PrivateRoomCreated_Frame(t *testing.T) {
	req := require.New(t)

	room := domain.Room{
		ID:           5,
		Name:         "alice & bob",
		Kind:         domain.RoomPrivate,
		Participants: []domain.UserID{1, 2},
		CreatedAt:    time.Now(),
	}

	data, err := Encode(event.PrivateRoomCreated{Room: room})
	req.NoError(err)

	var env Envelope
	req.NoError(json.Unmarshal(data, &env))
	req.Equal("private_room_created", env.Event)

	var payload RoomPayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.Equal(int64(5), payload.ID)
	req.Equal("alice & bob", payload.Name)
	req.Equal("PRIVATE", payload.Kind)
	req.Equal([]int64{1, 2}, payload.Participants)
}

func TestEncode_Presence_And_Error_Frames(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		e           event.DomainEvent
		wantEvent   string
		wantPayload string
	}{
		{
			"user joined",
			event.UserJoined{Room: 1, User: 7},
			"user_joined",
			`{"roomId":1,"userId":7}`,
		},
		{
			"typing start",
			event.UserTyping{Room: 1, User: 7},
			"user_typing",
			`{"roomId":1,"userId":7}`,
		},
		{
			"typing stop",
			event.UserStoppedTyping{Room: 1, User: 7},
			"user_stopped_typing",
			`{"roomId":1,"userId":7}`,
		},
		{
			"user online",
			event.UserOnline{User: 7},
			"user_online",
			`{"userId":7}`,
		},
		{
			"user offline",
			event.UserOffline{User: 7},
			"user_offline",
			`{"userId":7}`,
		},
		{
			"error",
			event.Error{Message: "room 404 not found"},
			"error",
			`{"message":"room 404 not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			data, err := Encode(tt.e)
			req.NoError(err)

			var env Envelope
			req.NoError(json.Unmarshal(data, &env))
			req.Equal(tt.wantEvent, env.Event)
			req.JSONEq(tt.wantPayload, string(env.Payload))
		})
	}
}

func TestEncode_Validation_Frames(t *testing.T) {
	req := require.New(t)

	validatorID := domain.UserID(9)
	message := domain.Message{
		ID: 10, RoomID: 1, SenderID: 7, Content: "validated",
		IsValidated: true, ValidatedBy: &validatorID, CreatedAt: time.Now(),
	}

	data, err := Encode(event.MessageValidated{Message: message})
	req.NoError(err)
	var env Envelope
	req.NoError(json.Unmarshal(data, &env))
	req.Equal("message_validated", env.Event)

	message.Rewarded = true
	data, err = Encode(event.MessageRewarded{Message: message})
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &env))
	req.Equal("message_rewarded", env.Event)

	var payload MessagePayload
	req.NoError(json.Unmarshal(env.Payload, &payload))
	req.True(payload.IsValidated)
	req.True(payload.Rewarded)
}
