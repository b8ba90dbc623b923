package services

import (
	"context"
	"log/slog"

	"dchat/contract"
	"dchat/domain"
	"dchat/domain/event"
)

// PresenceService wraps the registry with the ephemeral signal relays:
// online/offline on session lifecycle and typing indicators scoped to
// a room. Nothing here is persisted or reconciled; a client that
// disconnects mid-typing leaves no cleanup obligation on the server.
type PresenceService struct {
	log         *slog.Logger
	registry    contract.IRegistry
	broadcaster contract.Broadcaster
}

func NewPresenceService(log *slog.Logger, registry contract.IRegistry, broadcaster contract.Broadcaster) *PresenceService {
	return &PresenceService{log: log, registry: registry, broadcaster: broadcaster}
}

// Register attaches an authenticated session and announces the user to
// every other session, fire-and-forget.
func (p *PresenceService) Register(ctx context.Context, sessionID domain.SessionID, userID domain.UserID, sink contract.EventSink) {
	p.registry.Register(sessionID, userID, sink)
	p.log.Info("Session registered", "session_id", sessionID, "user_id", userID)
	p.broadcaster.ToAll(ctx, event.UserOnline{User: userID}, sessionID)
}

// Unregister handles any disconnect, abnormal included. The offline
// announcement fires only when the user's last session is gone.
func (p *PresenceService) Unregister(ctx context.Context, sessionID domain.SessionID) {
	userID, ok := p.registry.Unregister(sessionID)
	if !ok {
		return
	}
	p.log.Info("Session unregistered", "session_id", sessionID, "user_id", userID)
	if !p.registry.IsOnline(userID) {
		p.broadcaster.ToAll(ctx, event.UserOffline{User: userID})
	}
}

// TypingStart relays to the other sessions subscribed to the room.
// No debounce, no persistence.
func (p *PresenceService) TypingStart(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, userID domain.UserID) {
	p.broadcaster.ToRoom(ctx, event.UserTyping{Room: roomID, User: userID}, sessionID)
}

func (p *PresenceService) TypingStop(ctx context.Context, sessionID domain.SessionID, roomID domain.RoomID, userID domain.UserID) {
	p.broadcaster.ToRoom(ctx, event.UserStoppedTyping{Room: roomID, User: userID}, sessionID)
}

// AnnounceOnline and AnnounceOffline relay the explicit client frames;
// the automatic lifecycle announcements above do not depend on them.
func (p *PresenceService) AnnounceOnline(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) {
	p.broadcaster.ToAll(ctx, event.UserOnline{User: userID}, sessionID)
}

func (p *PresenceService) AnnounceOffline(ctx context.Context, sessionID domain.SessionID, userID domain.UserID) {
	p.broadcaster.ToAll(ctx, event.UserOffline{User: userID}, sessionID)
}

func (p *PresenceService) IsOnline(userID domain.UserID) bool {
	return p.registry.IsOnline(userID)
}
