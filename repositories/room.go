package repositories

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"dchat/contract"
	"dchat/domain"
	"dchat/errors"
)

type RoomRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewRoomRepository(db *badger.DB) (*RoomRepository, error) {
	seq, err := db.GetSequence([]byte("seq:room"), 16)
	if err != nil {
		return nil, fmt.Errorf("room sequence: %w", err)
	}
	return &RoomRepository{db: db, seq: seq}, nil
}

func (r *RoomRepository) Close() error {
	return r.seq.Release()
}

type diskRoom struct {
	ID           int64   `cbor:"1,keyasint"`
	Name         string  `cbor:"2,keyasint"`
	Kind         string  `cbor:"3,keyasint"`
	Participants []int64 `cbor:"4,keyasint"`
	CreatedAt    int64   `cbor:"5,keyasint"`
}

func (r *RoomRepository) GetRoom(_ context.Context, id domain.RoomID) (domain.Room, error) {
	var dr diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		return getDecoded(txn, roomKey(id), &dr)
	})
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Room{}, fmt.Errorf("room %d: %w", id, errors.ErrNotFound)
		}
		return domain.Room{}, err
	}
	return toRoom(dr), nil
}

func (r *RoomRepository) GetRoomByName(_ context.Context, name string) (domain.Room, error) {
	var dr diskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, roomNameKey(name))
		if err != nil {
			return err
		}
		return getDecoded(txn, roomKey(domain.RoomID(id)), &dr)
	})
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.Room{}, fmt.Errorf("room %q: %w", name, errors.ErrNotFound)
		}
		return domain.Room{}, err
	}
	return toRoom(dr), nil
}

// CreateIfAbsent persists the room unless its name is already taken.
// The name-index read and both writes share one transaction, so two
// simultaneous first contacts cannot both create: the loser's commit
// aborts and surfaces ErrRoomNameTaken, distinct from a generic
// failure, letting the coordinator re-fetch the winner's room.
func (r *RoomRepository) CreateIfAbsent(_ context.Context, room domain.Room) (domain.Room, error) {
	var dr diskRoom
	err := r.db.Update(func(txn *badger.Txn) error {
		_, err := lookupIndex(txn, roomNameKey(room.Name))
		if err == nil {
			return errors.ErrRoomNameTaken
		}
		if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		id := int64(room.ID)
		if id == 0 {
			// Preset ids (the global room) live outside the sequence,
			// so an allocated id may already be occupied. Skip until
			// free; the check shares the txn with the write below.
			for {
				next, err := r.seq.Next()
				if err != nil {
					return err
				}
				id = int64(next) + 1
				_, err = txn.Get(roomKey(domain.RoomID(id)))
				if goerrors.Is(err, badger.ErrKeyNotFound) {
					break
				}
				if err != nil {
					return err
				}
			}
		}
		createdAt := room.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		dr = diskRoom{
			ID:   id,
			Name: room.Name,
			Kind: string(room.Kind),
			Participants: lo.Map(room.Participants, func(u domain.UserID, _ int) int64 {
				return int64(u)
			}),
			CreatedAt: createdAt.UnixNano(),
		}
		data, err := encode(dr)
		if err != nil {
			return err
		}
		if err := txn.Set(roomKey(domain.RoomID(id)), data); err != nil {
			return err
		}
		return txn.Set(roomNameKey(room.Name), idValue(id))
	})
	if goerrors.Is(err, badger.ErrConflict) {
		// Lost the creation race after passing the index check.
		return domain.Room{}, errors.ErrRoomNameTaken
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(dr), nil
}

func toRoom(dr diskRoom) domain.Room {
	return domain.Room{
		ID:   domain.RoomID(dr.ID),
		Name: dr.Name,
		Kind: domain.RoomKind(dr.Kind),
		Participants: lo.Map(dr.Participants, func(id int64, _ int) domain.UserID {
			return domain.UserID(id)
		}),
		CreatedAt: time.Unix(0, dr.CreatedAt).UTC(),
	}
}

var _ contract.RoomStore = (*RoomRepository)(nil)
