package repositories

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"dchat/contract"
	"dchat/domain"
	"dchat/errors"
)

const transitionAttempts = 3

type MessageRepository struct {
	db            *badger.DB
	seq           *badger.Sequence
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:message"), 128)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log, limitMessages: limitMessages}, nil
}

func (r *MessageRepository) Close() error {
	return r.seq.Release()
}

type diskMessage struct {
	ID            int64  `cbor:"1,keyasint"`
	Room          int64  `cbor:"2,keyasint"`
	Sender        int64  `cbor:"3,keyasint"`
	Content       string `cbor:"4,keyasint"`
	ReplyTo       *int64 `cbor:"5,keyasint,omitempty"`
	IsEncrypted   bool   `cbor:"6,keyasint,omitempty"`
	EncryptedData []byte `cbor:"7,keyasint,omitempty"`
	Likes         int    `cbor:"8,keyasint"`
	Dislikes      int    `cbor:"9,keyasint"`
	IsValidated   bool   `cbor:"10,keyasint"`
	Rewarded      bool   `cbor:"11,keyasint"`
	ValidatedBy   *int64 `cbor:"12,keyasint,omitempty"`
	At            int64  `cbor:"13,keyasint"`
}

func (r *MessageRepository) GetMessage(_ context.Context, id domain.MessageID) (domain.Message, error) {
	var dm diskMessage
	err := r.db.View(func(txn *badger.Txn) error {
		return getDecoded(txn, messageKey(id), &dm)
	})
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Message{}, fmt.Errorf("message %d: %w", id, errors.ErrNotFound)
		}
		return domain.Message{}, err
	}
	return toMessage(dm), nil
}

// StoreMessage assigns the id and timestamp and writes the primary
// record plus the room-ordered index entry in one transaction.
func (r *MessageRepository) StoreMessage(_ context.Context, m domain.Message) (domain.Message, error) {
	next, err := r.seq.Next()
	if err != nil {
		return domain.Message{}, err
	}
	m.ID = domain.MessageID(int64(next) + 1)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	dm := fromMessage(m)
	data, err := encode(dm)
	if err != nil {
		return domain.Message{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(m.ID), data); err != nil {
			return err
		}
		indexKey := msgRoomKey(m.RoomID, m.CreatedAt.UnixNano(), m.ID)
		return txn.Set(indexKey, idValue(int64(m.ID)))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// RoomMessages retrieves a room's history newest-first using a reverse
// prefix scan over the ordering index. The padded timestamp in the key
// keeps the scan chronological; the returned cursor is the index-key
// suffix of the last message, fed back in to fetch the next page.
func (r *MessageRepository) RoomMessages(_ context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var diskMessages []diskMessage
	var lastKey string

	err := r.db.View(func(txn *badger.Txn) error {
		prefix := msgRoomPrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		default:
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(diskMessages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])

			var id int64
			err := item.Value(func(val []byte) error {
				_, err := fmt.Sscanf(string(val), "%d", &id)
				return err
			})
			if err != nil {
				return err
			}
			var dm diskMessage
			if err := getDecoded(txn, messageKey(domain.MessageID(id)), &dm); err != nil {
				return err
			}
			diskMessages = append(diskMessages, dm)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(diskMessages))
	for _, dm := range diskMessages {
		messages = append(messages, toMessage(dm))
	}
	return messages, &lastKey, nil
}

// TransitionValidation applies a conditional state change: the write
// lands only when the message is still in the from state. Between two
// racing validators Badger aborts one commit; the retry then observes
// the new state and reports the precise conflict.
func (r *MessageRepository) TransitionValidation(_ context.Context, id domain.MessageID,
	from, to domain.ValidationState, validatedBy *domain.UserID) (domain.Message, error) {

	for attempt := 0; attempt < transitionAttempts; attempt++ {
		var dm diskMessage
		err := r.db.Update(func(txn *badger.Txn) error {
			if err := getDecoded(txn, messageKey(id), &dm); err != nil {
				return err
			}
			current := toMessage(dm).State()
			if current != from {
				return stateConflict(from, current)
			}
			switch to {
			case domain.StateValidated:
				dm.IsValidated = true
				if validatedBy != nil {
					v := int64(*validatedBy)
					dm.ValidatedBy = &v
				}
			case domain.StateRewarded:
				dm.Rewarded = true
			default:
				return fmt.Errorf("transition to %s: %w", to, errors.ErrInvalidInput)
			}
			data, err := encode(dm)
			if err != nil {
				return err
			}
			return txn.Set(messageKey(id), data)
		})

		if goerrors.Is(err, badger.ErrConflict) {
			// Another transition landed first; re-read and report.
			continue
		}
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Message{}, fmt.Errorf("message %d: %w", id, errors.ErrNotFound)
		}
		if err != nil {
			return domain.Message{}, err
		}
		return toMessage(dm), nil
	}
	return domain.Message{}, fmt.Errorf("transition of message %d kept conflicting: %w", id, errors.ErrConflict)
}

// stateConflict names the exact conflict for the failed precondition.
func stateConflict(from, current domain.ValidationState) error {
	switch {
	case from == domain.StateUnvalidated && current != domain.StateUnvalidated:
		return errors.ErrAlreadyValidated
	case from == domain.StateValidated && current == domain.StateRewarded:
		return errors.ErrAlreadyRewarded
	case from == domain.StateValidated && current == domain.StateUnvalidated:
		return errors.ErrNotYetValidated
	default:
		return fmt.Errorf("message is %s, expected %s: %w", current, from, errors.ErrConflict)
	}
}

func fromMessage(m domain.Message) diskMessage {
	dm := diskMessage{
		ID:            int64(m.ID),
		Room:          int64(m.RoomID),
		Sender:        int64(m.SenderID),
		Content:       m.Content,
		IsEncrypted:   m.IsEncrypted,
		EncryptedData: []byte(m.EncryptedData),
		Likes:         m.Likes,
		Dislikes:      m.Dislikes,
		IsValidated:   m.IsValidated,
		Rewarded:      m.Rewarded,
		At:            m.CreatedAt.UnixNano(),
	}
	if m.ReplyToID != nil {
		v := int64(*m.ReplyToID)
		dm.ReplyTo = &v
	}
	if m.ValidatedBy != nil {
		v := int64(*m.ValidatedBy)
		dm.ValidatedBy = &v
	}
	return dm
}

func toMessage(dm diskMessage) domain.Message {
	m := domain.Message{
		ID:            domain.MessageID(dm.ID),
		RoomID:        domain.RoomID(dm.Room),
		SenderID:      domain.UserID(dm.Sender),
		Content:       dm.Content,
		IsEncrypted:   dm.IsEncrypted,
		EncryptedData: json.RawMessage(dm.EncryptedData),
		Likes:         dm.Likes,
		Dislikes:      dm.Dislikes,
		IsValidated:   dm.IsValidated,
		Rewarded:      dm.Rewarded,
		CreatedAt:     time.Unix(0, dm.At).UTC(),
	}
	if dm.ReplyTo != nil {
		v := domain.MessageID(*dm.ReplyTo)
		m.ReplyToID = &v
	}
	if dm.ValidatedBy != nil {
		v := domain.UserID(*dm.ValidatedBy)
		m.ValidatedBy = &v
	}
	return m
}

var _ contract.MessageStore = (*MessageRepository)(nil)
