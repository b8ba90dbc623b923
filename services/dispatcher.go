package services

import (
	"context"
	"fmt"
	"log/slog"

	"dchat/contract"
	"dchat/domain"
	"dchat/domain/event"
	"dchat/errors"
)

// MessageDispatcher validates and persists incoming messages, then
// fans them out to the room's subscriber set. Fan-out after a
// successful persist is fire-and-forget: a lost broadcast is not
// re-sent, subscribers recover by refetching room history.
type MessageDispatcher struct {
	log         *slog.Logger
	users       contract.UserStore
	rooms       contract.RoomStore
	messages    contract.MessageStore
	broadcaster contract.Broadcaster
}

func NewMessageDispatcher(log *slog.Logger, users contract.UserStore, rooms contract.RoomStore,
	messages contract.MessageStore, broadcaster contract.Broadcaster) *MessageDispatcher {
	return &MessageDispatcher{
		log:         log,
		users:       users,
		rooms:       rooms,
		messages:    messages,
		broadcaster: broadcaster,
	}
}

// CreateMessage runs the validation chain in order, persists the
// message unvalidated with zero counters, re-reads it for fan-out
// payload completeness, and broadcasts new_message to the room.
// Encrypted payloads pass through opaque: no decryption, no
// inspection, no transformation.
func (d *MessageDispatcher) CreateMessage(ctx context.Context, cmd domain.CreateMessageCommand) (domain.Message, error) {
	if _, err := d.users.GetUser(ctx, cmd.SenderID); err != nil {
		return domain.Message{}, err
	}
	if _, err := d.rooms.GetRoom(ctx, cmd.RoomID); err != nil {
		return domain.Message{}, err
	}
	if cmd.ReplyToID != nil {
		if err := d.checkReplyTarget(ctx, cmd.RoomID, *cmd.ReplyToID); err != nil {
			return domain.Message{}, err
		}
	}

	stored, err := d.messages.StoreMessage(ctx, domain.Message{
		RoomID:        cmd.RoomID,
		SenderID:      cmd.SenderID,
		Content:       cmd.Content,
		ReplyToID:     cmd.ReplyToID,
		IsEncrypted:   cmd.IsEncrypted,
		EncryptedData: cmd.EncryptedData,
	})
	if err != nil {
		d.log.Error("Message persistence failed",
			"room_id", cmd.RoomID, "sender_id", cmd.SenderID, "error", err)
		return domain.Message{}, fmt.Errorf("message persistence: %w", errors.ErrUnavailable)
	}

	message, err := d.messages.GetMessage(ctx, stored.ID)
	if err != nil {
		// Persisted but unreadable; surface the stored copy rather
		// than failing a write that already happened.
		d.log.Warn("Re-fetch after persist failed", "message_id", stored.ID, "error", err)
		message = stored
	}

	d.broadcaster.ToRoom(ctx, event.NewMessage{Message: message})
	return message, nil
}

// checkReplyTarget enforces reply scoping: the target must exist, live
// in the same room, and be a top-level message. Reply depth is one.
func (d *MessageDispatcher) checkReplyTarget(ctx context.Context, roomID domain.RoomID, replyToID domain.MessageID) error {
	parent, err := d.messages.GetMessage(ctx, replyToID)
	if err != nil {
		return err
	}
	if parent.RoomID != roomID {
		return fmt.Errorf("message %d: %w", replyToID, errors.ErrReplyWrongRoom)
	}
	if parent.IsReply() {
		return fmt.Errorf("message %d: %w", replyToID, errors.ErrReplyToReply)
	}
	return nil
}

// RoomHistory pages through a room's persisted messages, newest first.
func (d *MessageDispatcher) RoomHistory(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	if _, err := d.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, nil, err
	}
	return d.messages.RoomMessages(ctx, roomID, cursor)
}
