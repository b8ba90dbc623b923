package gateway

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dchat/domain"
	"dchat/domain/event"
	apperrors "dchat/errors"
	"dchat/mocks"
	"dchat/protocol"
	"dchat/services"
)

func TestSession_Handle_Rejects_Foreign_Identity(t *testing.T) {
	ctx := context.Background()

	// Given a session authenticated as user 7
	s := &session{id: "session-a", userID: domain.UserID(7), gateway: &Gateway{}}

	tests := []struct {
		description string
		frame       protocol.Inbound
	}{
		{"Should refuse joining a room as someone else", protocol.JoinRoom{RoomID: 1, UserID: 9}},
		{"Should refuse typing indicators for someone else", protocol.TypingStart{RoomID: 1, UserID: 9}},
		{"Should refuse stopping typing for someone else", protocol.TypingStop{RoomID: 1, UserID: 9}},
		{"Should refuse announcing someone else online", protocol.UserOnline{UserID: 9}},
		{"Should refuse announcing someone else offline", protocol.UserOffline{UserID: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)

			// When the frame claims a user the session did not authenticate as
			err := s.handle(ctx, tt.frame)

			// Then it is refused before reaching any service
			req.ErrorIs(err, apperrors.ErrForbidden)
		})
	}
}

func TestSession_Handle_Relays_Own_Typing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	broadcaster := mocks.NewMockBroadcaster(ctrl)
	presence := services.NewPresenceService(log, registry, broadcaster)

	sessionID := domain.SessionID("session-a")
	userID := domain.UserID(7)
	roomID := domain.RoomID(1)
	s := &session{id: sessionID, userID: userID, gateway: &Gateway{presence: presence}}

	// The frame matches the session's own identity: it is relayed
	broadcaster.EXPECT().ToRoom(ctx, event.UserTyping{Room: roomID, User: userID}, sessionID)

	err := s.handle(ctx, protocol.TypingStart{RoomID: int64(roomID), UserID: int64(userID)})
	req.NoError(err)
	req.True(ctrl.Satisfied())
}
