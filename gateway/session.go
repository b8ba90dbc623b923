package gateway

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"dchat/domain"
	"dchat/domain/event"
	apperrors "dchat/errors"
	"dchat/protocol"
	"dchat/sink"
)

// session is one live connection: a sequential read loop and a single
// write pump draining the per-session sink. Events from this sender
// are processed in send order; nothing else is ordered.
type session struct {
	id      domain.SessionID
	userID  domain.UserID
	conn    *websocket.Conn
	sink    *sink.SessionSink
	gateway *Gateway
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g := s.gateway
	g.presence.Register(ctx, s.id, s.userID, s.sink)
	defer func() {
		g.presence.Unregister(context.WithoutCancel(ctx), s.id)
		_ = s.conn.Close()
	}()

	go s.writePump(ctx)
	s.readLoop(ctx)
}

// writePump is the sole writer on the connection, so error frames and
// broadcasts cannot interleave mid-frame.
func (s *session) writePump(ctx context.Context) {
	g := s.gateway
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.sink.Events:
			data, err := protocol.Encode(evt)
			if err != nil {
				g.log.Error("Outbound encoding failed",
					"session_id", s.id, "event", evt.Name(), "error", err)
				continue
			}
			deadline := time.Now().Add(g.deliveryTimeout)
			if err := s.conn.SetWriteDeadline(deadline); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				g.log.Warn("Push to session failed",
					"session_id", s.id, "user_id", s.userID, "error", err)
				return
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) {
	g := s.gateway
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			g.log.Info(fmt.Sprintf("Client %s disconnected", s.id), "user_id", s.userID)
			return
		}

		in, err := protocol.Decode(data)
		if err != nil {
			s.reportError(ctx, "decode", err)
			continue
		}
		g.metrics.InboundEvents.WithLabelValues(eventName(in)).Inc()

		if err := s.handle(ctx, in); err != nil {
			s.reportError(ctx, eventName(in), err)
		}
	}
}

// handle is the exhaustive dispatch over the inbound union. A new
// frame type that is not handled here fails to compile rather than
// silently falling through at runtime.
func (s *session) handle(ctx context.Context, in protocol.Inbound) error {
	g := s.gateway
	switch ev := in.(type) {
	case protocol.JoinRoom:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		return g.coordinator.JoinRoom(ctx, s.id, domain.RoomID(ev.RoomID))

	case protocol.SendMessage:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		_, err := g.dispatcher.CreateMessage(ctx, ev.Command())
		return err

	case protocol.JoinPrivate:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		_, err := g.coordinator.CreateOrGetPrivateRoom(ctx, domain.CreatePrivateRoomCommand{
			UserID: domain.UserID(ev.UserID),
			PeerID: domain.UserID(ev.PeerID),
			Kind:   domain.RoomKind(ev.Type),
		})
		return err

	case protocol.TypingStart:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		g.presence.TypingStart(ctx, s.id, domain.RoomID(ev.RoomID), domain.UserID(ev.UserID))
		return nil

	case protocol.TypingStop:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		g.presence.TypingStop(ctx, s.id, domain.RoomID(ev.RoomID), domain.UserID(ev.UserID))
		return nil

	case protocol.ValidateMessage:
		if err := s.checkIdentity(ev.ValidatedBy); err != nil {
			return err
		}
		_, err := g.validation.Validate(ctx, domain.MessageID(ev.MessageID), domain.UserID(ev.ValidatedBy))
		return err

	case protocol.UnvalidateMessage:
		if err := s.checkIdentity(ev.UnvalidatedBy); err != nil {
			return err
		}
		return g.validation.Unvalidate(ctx, domain.MessageID(ev.MessageID), domain.UserID(ev.UnvalidatedBy))

	case protocol.UserOnline:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		g.presence.AnnounceOnline(ctx, s.id, domain.UserID(ev.UserID))
		return nil

	case protocol.UserOffline:
		if err := s.checkIdentity(ev.UserID); err != nil {
			return err
		}
		g.presence.AnnounceOffline(ctx, s.id, domain.UserID(ev.UserID))
		return nil

	default:
		return fmt.Errorf("unhandled frame type %T: %w", in, apperrors.ErrInvalidInput)
	}
}

// checkIdentity rejects frames claiming a user other than the one the
// session authenticated as.
func (s *session) checkIdentity(claimed int64) error {
	if domain.UserID(claimed) != s.userID {
		return fmt.Errorf("session user %d cannot act as user %d: %w",
			s.userID, claimed, apperrors.ErrForbidden)
	}
	return nil
}

// reportError converts any handler failure into a single error frame
// for the originating session. Errors never broadcast to other room
// members and never escape as process-crashing panics.
func (s *session) reportError(ctx context.Context, eventName string, err error) {
	g := s.gateway
	classified := apperrors.Classify(err)
	g.metrics.HandlerErrors.WithLabelValues(classified.Error()).Inc()

	if goerrors.Is(classified, apperrors.ErrUnavailable) {
		g.log.Error("Handler failed",
			"event", eventName, "session_id", s.id, "user_id", s.userID, "error", err)
	} else {
		g.log.Debug("Handler rejected frame",
			"event", eventName, "session_id", s.id, "user_id", s.userID, "error", err)
	}

	if err := s.sink.Consume(ctx, event.Error{Message: safeMessage(err)}); err != nil {
		g.metrics.DroppedEvents.Inc()
	}
}

func eventName(in protocol.Inbound) string {
	switch in.(type) {
	case protocol.JoinRoom:
		return "join_room"
	case protocol.SendMessage:
		return "send_message"
	case protocol.JoinPrivate:
		return "join_private"
	case protocol.TypingStart:
		return "typing_start"
	case protocol.TypingStop:
		return "typing_stop"
	case protocol.ValidateMessage:
		return "validate_message"
	case protocol.UnvalidateMessage:
		return "unvalidate_message"
	case protocol.UserOnline:
		return "user_online"
	case protocol.UserOffline:
		return "user_offline"
	default:
		return "unknown"
	}
}
