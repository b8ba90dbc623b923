package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dchat/domain"
	"dchat/errors"
)

func TestDecode_Known_Events(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		frame       string
		want        Inbound
	}{
		{
			"join_room",
			`{"event":"join_room","payload":{"roomId":1,"userId":7}}`,
			JoinRoom{RoomID: 1, UserID: 7},
		},
		{
			"send_message",
			`{"event":"send_message","payload":{"roomId":1,"userId":7,"content":"hello"}}`,
			SendMessage{RoomID: 1, UserID: 7, Content: "hello"},
		},
		{
			"join_private",
			`{"event":"join_private","payload":{"userId":7,"peerId":8,"type":"PRIVATE"}}`,
			JoinPrivate{UserID: 7, PeerID: 8, Type: "PRIVATE"},
		},
		{
			"typing_start",
			`{"event":"typing_start","payload":{"roomId":1,"userId":7}}`,
			TypingStart{RoomID: 1, UserID: 7},
		},
		{
			"typing_stop",
			`{"event":"typing_stop","payload":{"roomId":1,"userId":7}}`,
			TypingStop{RoomID: 1, UserID: 7},
		},
		{
			"validate_message",
			`{"event":"validate_message","payload":{"messageId":10,"validatedBy":9}}`,
			ValidateMessage{MessageID: 10, ValidatedBy: 9},
		},
		{
			"unvalidate_message",
			`{"event":"unvalidate_message","payload":{"messageId":10,"unvalidatedBy":9}}`,
			UnvalidateMessage{MessageID: 10, UnvalidatedBy: 9},
		},
		{
			"user_online",
			`{"event":"user_online","payload":{"userId":7}}`,
			UserOnline{UserID: 7},
		},
		{
			"user_offline",
			`{"event":"user_offline","payload":{"userId":7}}`,
			UserOffline{UserID: 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			in, err := Decode([]byte(tt.frame))
			req.NoError(err)
			req.Equal(tt.want, in)
		})
	}
}

func TestDecode_SendMessage_With_Reply_And_Encryption(t *testing.T) {
	req := require.New(t)

	frame := `{"event":"send_message","payload":{
		"roomId":1,"userId":7,"content":"grkRI2eSJyLjzpbo77W1kA==",
		"replyToId":10,"isEncrypted":true,
		"encryptedData":{"alg":"aes-256-gcm","keys":{"7":"wrapped"}}}}`

	in, err := Decode([]byte(frame))
	req.NoError(err)

	msg, ok := in.(SendMessage)
	req.True(ok)
	req.Equal(int64(10), *msg.ReplyToID)
	req.True(msg.IsEncrypted)
	req.JSONEq(`{"alg":"aes-256-gcm","keys":{"7":"wrapped"}}`, string(msg.EncryptedData))

	cmd := msg.Command()
	req.Equal(domain.RoomID(1), cmd.RoomID)
	req.Equal(domain.UserID(7), cmd.SenderID)
	req.Equal(domain.MessageID(10), *cmd.ReplyToID)
	req.Equal([]byte(msg.EncryptedData), []byte(cmd.EncryptedData))
}

func TestDecode_Rejections(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		description string
		frame       string
	}{
		{"unknown event name", `{"event":"self_destruct","payload":{}}`},
		{"not json at all", `this is not a frame`},
		{"payload of the wrong shape", `{"event":"join_room","payload":{"roomId":"one"}}`},
		{"missing required field", `{"event":"join_room","payload":{"roomId":1}}`},
		{"empty content", `{"event":"send_message","payload":{"roomId":1,"userId":7,"content":""}}`},
		{"bad private room type", `{"event":"join_private","payload":{"userId":7,"peerId":8,"type":"GLOBAL"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			req.ErrorIs(err, errors.ErrInvalidInput)
		})
	}
}
