package workers

import (
	"context"
	goerrors "errors"
	"log/slog"

	"dchat/domain"
	"dchat/errors"
)

// Rewarder drives the second validation transition of a message.
type Rewarder interface {
	Reward(ctx context.Context, id domain.MessageID) (domain.Message, error)
}

// RewardWorker consumes message ids whose validation just succeeded
// and applies the VALIDATED -> REWARDED transition. Running it apart
// from the validate path keeps reward able to fail without undoing
// validation; a Conflict simply means another path already rewarded
// the message.
type RewardWorker struct {
	log      *slog.Logger
	rewarder Rewarder
	queue    <-chan domain.MessageID
}

func NewRewardWorker(log *slog.Logger, rewarder Rewarder, queue <-chan domain.MessageID) *RewardWorker {
	return &RewardWorker{log: log, rewarder: rewarder, queue: queue}
}

func (w *RewardWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping reward worker")
			return ctx.Err()
		case id, ok := <-w.queue:
			if !ok {
				return nil
			}
			if _, err := w.rewarder.Reward(ctx, id); err != nil {
				if goerrors.Is(err, errors.ErrConflict) {
					w.log.Debug("Message already rewarded", "message_id", id)
					continue
				}
				w.log.Warn("Reward transition failed", "message_id", id, "error", err)
			}
		}
	}
}
