// Package reward bridges the validation state machine to the external
// token-minting collaborator through a Redis stream. The minting
// service consumes the stream and performs the on-chain transfer; this
// side only records the grant.
package reward

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"dchat/contract"
	"dchat/errors"
)

const grantStream = "reward:grants"

type RedisNotifier struct {
	client *redis.Client
	log    *slog.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, log *slog.Logger, addr, password string, db int) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisNotifier{client: client, log: log}, nil
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

// RewardGranted appends the grant to the stream. The stream id doubles
// as an ordering receipt; dedup on the consumer side keys on the
// message id, so re-notifying after a retry is harmless.
func (n *RedisNotifier) RewardGranted(ctx context.Context, grant contract.RewardGrant) error {
	err := n.client.XAdd(ctx, &redis.XAddArgs{
		Stream: grantStream,
		Values: map[string]any{
			"message_id": int64(grant.MessageID),
			"room_id":    int64(grant.RoomID),
			"recipient":  int64(grant.Recipient),
			"wallet":     grant.Wallet,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("reward stream append: %w", errors.ErrUnavailable)
	}
	n.log.Debug("Reward grant recorded",
		"message_id", grant.MessageID, "recipient", grant.Recipient)
	return nil
}

var _ contract.TokenRewardNotifier = (*RedisNotifier)(nil)
