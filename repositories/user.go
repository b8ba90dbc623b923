package repositories

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"dchat/contract"
	"dchat/domain"
	"dchat/errors"
)

const getOrCreateAttempts = 3

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte("seq:user"), 64)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

func (r *UserRepository) Close() error {
	return r.seq.Release()
}

// diskUser is the CBOR representation persisted in Badger.
type diskUser struct {
	ID        int64  `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	Avatar    string `cbor:"3,keyasint"`
	Wallet    string `cbor:"4,keyasint"`
	Role      string `cbor:"5,keyasint"`
	Balance   int64  `cbor:"6,keyasint"`
	CreatedAt int64  `cbor:"7,keyasint"`
}

func (r *UserRepository) GetUser(_ context.Context, id domain.UserID) (domain.User, error) {
	var du diskUser
	err := r.db.View(func(txn *badger.Txn) error {
		return getDecoded(txn, userKey(id), &du)
	})
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
		}
		return domain.User{}, err
	}
	return toUser(du), nil
}

func (r *UserRepository) GetByWallet(_ context.Context, wallet string) (domain.User, error) {
	var du diskUser
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, walletKey(wallet))
		if err != nil {
			return err
		}
		return getDecoded(txn, userKey(domain.UserID(id)), &du)
	})
	if err != nil {
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, fmt.Errorf("wallet %s: %w", wallet, errors.ErrNotFound)
		}
		return domain.User{}, err
	}
	return toUser(du), nil
}

// GetOrCreateByWallet creates the user on first wallet handshake. The
// wallet index read and the two writes happen in one transaction;
// Badger aborts the commit when a concurrent handshake for the same
// wallet landed first, in which case we re-read the winner's record.
func (r *UserRepository) GetOrCreateByWallet(ctx context.Context, wallet, username, avatar string) (domain.User, bool, error) {
	for attempt := 0; attempt < getOrCreateAttempts; attempt++ {
		var du diskUser
		created := false

		err := r.db.Update(func(txn *badger.Txn) error {
			id, err := lookupIndex(txn, walletKey(wallet))
			if err == nil {
				return getDecoded(txn, userKey(domain.UserID(id)), &du)
			}
			if !goerrors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			next, err := r.seq.Next()
			if err != nil {
				return err
			}
			du = diskUser{
				ID:        int64(next) + 1,
				Username:  username,
				Avatar:    avatar,
				Wallet:    wallet,
				Role:      string(domain.RoleMember),
				CreatedAt: time.Now().UTC().UnixNano(),
			}
			data, err := encode(du)
			if err != nil {
				return err
			}
			if err := txn.Set(userKey(domain.UserID(du.ID)), data); err != nil {
				return err
			}
			if err := txn.Set(walletKey(wallet), idValue(du.ID)); err != nil {
				return err
			}
			created = true
			return nil
		})

		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return domain.User{}, false, err
		}
		return toUser(du), created, nil
	}
	return domain.User{}, false, fmt.Errorf("wallet handshake for %s kept conflicting: %w", wallet, errors.ErrUnavailable)
}

// SetRole is used by the external role-assignment flow; the core only
// ever reads roles.
func (r *UserRepository) SetRole(_ context.Context, id domain.UserID, role domain.Role) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		var du diskUser
		if err := getDecoded(txn, userKey(id), &du); err != nil {
			return err
		}
		du.Role = string(role)
		data, err := encode(du)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("user %d: %w", id, errors.ErrNotFound)
	}
	return err
}

func toUser(du diskUser) domain.User {
	return domain.User{
		ID:            domain.UserID(du.ID),
		Username:      du.Username,
		Avatar:        du.Avatar,
		WalletAddress: du.Wallet,
		Role:          domain.Role(du.Role),
		TokenBalance:  du.Balance,
		CreatedAt:     time.Unix(0, du.CreatedAt).UTC(),
	}
}

var _ contract.UserStore = (*UserRepository)(nil)
