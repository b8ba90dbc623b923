package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dchat/domain"
	"dchat/errors"
)

func TestUserRepository_GetOrCreateByWallet(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	wallet := "EQD4FPq-PRD4YtG87wgL7AErgQwHUMFQ-JxyYw8jzBPhqjfH"

	// When the wallet shakes hands for the first time
	alice, created, err := repository.GetOrCreateByWallet(ctx, wallet, "alice", "alice.png")
	req.NoError(err)
	req.True(created)
	req.NotZero(alice.ID)
	req.Equal(wallet, alice.WalletAddress)
	req.Equal(domain.RoleMember, alice.Role)

	// When the same wallet shakes hands again
	again, created, err := repository.GetOrCreateByWallet(ctx, wallet, "alice", "alice.png")
	req.NoError(err)
	req.False(created)
	req.Equal(alice.ID, again.ID)

	// Then both lookups resolve the same record
	byID, err := repository.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.Equal(alice.ID, byID.ID)

	byWallet, err := repository.GetByWallet(ctx, wallet)
	req.NoError(err)
	req.Equal(alice.ID, byWallet.ID)
}

func TestUserRepository_GetUser_NotFound(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	_, err = repository.GetUser(ctx, domain.UserID(999))
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repository.GetByWallet(ctx, "EQunknown")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_SetRole(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	alice, _, err := repository.GetOrCreateByWallet(ctx, "EQwallet-alice", "alice", "")
	req.NoError(err)
	req.False(alice.IsValidator())

	// When the external role flow promotes the user
	err = repository.SetRole(ctx, alice.ID, domain.RoleValidator)
	req.NoError(err)

	promoted, err := repository.GetUser(ctx, alice.ID)
	req.NoError(err)
	req.True(promoted.IsValidator())

	// Promoting a missing user fails cleanly
	err = repository.SetRole(ctx, domain.UserID(999), domain.RoleValidator)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_Distinct_Wallets_Distinct_Users(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repository, err := NewUserRepository(db)
	req.NoError(err)
	defer repository.Close()

	alice, _, err := repository.GetOrCreateByWallet(ctx, "EQwallet-alice", "alice", "")
	req.NoError(err)
	bob, _, err := repository.GetOrCreateByWallet(ctx, "EQwallet-bob", "bob", "")
	req.NoError(err)

	req.NotEqual(alice.ID, bob.ID)
}
