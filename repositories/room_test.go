package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dchat/domain"
	"dchat/errors"
)

func TestRoomRepository_CreateIfAbsent_And_Lookups(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	created, err := repository.CreateIfAbsent(ctx, domain.Room{
		Name:         "alice & bob",
		Kind:         domain.RoomPrivate,
		Participants: []domain.UserID{1, 2},
	})
	req.NoError(err)
	req.NotZero(created.ID)
	req.Equal(domain.RoomPrivate, created.Kind)
	req.Equal([]domain.UserID{1, 2}, created.Participants)

	byID, err := repository.GetRoom(ctx, created.ID)
	req.NoError(err)
	req.Equal(created.ID, byID.ID)

	byName, err := repository.GetRoomByName(ctx, "alice & bob")
	req.NoError(err)
	req.Equal(created.ID, byName.ID)
}

func TestRoomRepository_CreateIfAbsent_Name_Taken(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	first, err := repository.CreateIfAbsent(ctx, domain.Room{Name: "alice & bob", Kind: domain.RoomPrivate})
	req.NoError(err)

	// When the losing side of a first-contact race tries the same name
	_, err = repository.CreateIfAbsent(ctx, domain.Room{Name: "alice & bob", Kind: domain.RoomPrivate})
	req.ErrorIs(err, errors.ErrRoomNameTaken)

	// Then the winner's room is untouched and re-fetchable
	room, err := repository.GetRoomByName(ctx, "alice & bob")
	req.NoError(err)
	req.Equal(first.ID, room.ID)
}

func TestRoomRepository_CreateIfAbsent_Preset_ID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	// The global room is created out-of-band with its well-known id
	room, err := repository.CreateIfAbsent(ctx, domain.Room{
		ID:   domain.GlobalRoomID,
		Name: "global",
		Kind: domain.RoomGlobal,
	})
	req.NoError(err)
	req.Equal(domain.GlobalRoomID, room.ID)
}

func TestRoomRepository_Sequence_Skips_Preset_ID(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	// Given the global room holding its well-known id out-of-band
	global, err := repository.CreateIfAbsent(ctx, domain.Room{
		ID:   domain.GlobalRoomID,
		Name: "global",
		Kind: domain.RoomGlobal,
	})
	req.NoError(err)

	// When a lazily created room draws its id from the sequence
	private, err := repository.CreateIfAbsent(ctx, domain.Room{
		Name:         "alice & bob",
		Kind:         domain.RoomPrivate,
		Participants: []domain.UserID{1, 2},
	})
	req.NoError(err)

	// Then it lands on a free id and the global room is untouched
	req.NotEqual(global.ID, private.ID)
	byName, err := repository.GetRoomByName(ctx, "global")
	req.NoError(err)
	req.Equal(global.ID, byName.ID)
	req.Equal(domain.RoomGlobal, byName.Kind)
	req.Equal("global", byName.Name)
}

func TestRoomRepository_GetRoom_NotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewRoomRepository(db)
	req.NoError(err)
	defer repository.Close()

	_, err = repository.GetRoom(ctx, domain.RoomID(999))
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetRoomByName(ctx, "nowhere")
	req.ErrorIs(err, errors.ErrNotFound)
}
