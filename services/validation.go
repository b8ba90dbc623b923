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

// ValidationService governs the one-way lifecycle
// UNVALIDATED -> VALIDATED -> REWARDED. Validation and reward are two
// separately observable transitions: a successful validate enqueues
// the message for reward, and reward can fail or retry without
// touching the validation flag. Both the socket path and the REST path
// converge here, so the two surfaces can never diverge on state.
type ValidationService struct {
	log         *slog.Logger
	users       contract.UserStore
	messages    contract.MessageStore
	broadcaster contract.Broadcaster
	notifier    contract.TokenRewardNotifier
	rewardQueue chan<- domain.MessageID
}

func NewValidationService(log *slog.Logger, users contract.UserStore, messages contract.MessageStore,
	broadcaster contract.Broadcaster, notifier contract.TokenRewardNotifier,
	rewardQueue chan<- domain.MessageID) *ValidationService {
	return &ValidationService{
		log:         log,
		users:       users,
		messages:    messages,
		broadcaster: broadcaster,
		notifier:    notifier,
		rewardQueue: rewardQueue,
	}
}

// Validate transitions a message UNVALIDATED -> VALIDATED. The caller
// must resolve to a VALIDATOR; a message already past UNVALIDATED is a
// Conflict and is never mutated. The store's conditional write decides
// between racing validators: exactly one wins, the loser gets the
// Conflict.
func (s *ValidationService) Validate(ctx context.Context, messageID domain.MessageID, validatorID domain.UserID) (domain.Message, error) {
	validator, err := s.users.GetUser(ctx, validatorID)
	if err != nil {
		return domain.Message{}, err
	}
	if !validator.IsValidator() {
		return domain.Message{}, fmt.Errorf("user %d: %w", validatorID, errors.ErrNotValidator)
	}

	message, err := s.messages.TransitionValidation(ctx, messageID,
		domain.StateUnvalidated, domain.StateValidated, &validatorID)
	if err != nil {
		return domain.Message{}, err
	}

	s.log.Info("Message validated",
		"message_id", messageID, "room_id", message.RoomID, "validator_id", validatorID)
	s.broadcaster.ToRoom(ctx, event.MessageValidated{Message: message})

	s.enqueueReward(messageID)
	return message, nil
}

// enqueueReward hands the follow-up transition to the reward worker
// without blocking the validate path. A full queue is logged and
// dropped; the REST reward endpoint remains available as the manual
// retry path.
func (s *ValidationService) enqueueReward(messageID domain.MessageID) {
	select {
	case s.rewardQueue <- messageID:
	default:
		s.log.Warn("Reward queue full, dropping follow-up", "message_id", messageID)
	}
}

// Reward transitions a message VALIDATED -> REWARDED and hands the
// grant to the token-minting collaborator. Success means "marked for
// reward", not "tokens confirmed on-chain": the notifier call is
// fire-and-forget and its failure does not undo the transition.
func (s *ValidationService) Reward(ctx context.Context, messageID domain.MessageID) (domain.Message, error) {
	message, err := s.messages.TransitionValidation(ctx, messageID,
		domain.StateValidated, domain.StateRewarded, nil)
	if err != nil {
		return domain.Message{}, err
	}

	s.notifyGrant(ctx, message)
	s.broadcaster.ToRoom(ctx, event.MessageRewarded{Message: message})
	return message, nil
}

func (s *ValidationService) notifyGrant(ctx context.Context, message domain.Message) {
	sender, err := s.users.GetUser(ctx, message.SenderID)
	if err != nil {
		s.log.Warn("Reward recipient lookup failed",
			"message_id", message.ID, "sender_id", message.SenderID, "error", err)
		return
	}
	grant := contract.RewardGrant{
		MessageID: message.ID,
		RoomID:    message.RoomID,
		Recipient: sender.ID,
		Wallet:    sender.WalletAddress,
	}
	if err := s.notifier.RewardGranted(ctx, grant); err != nil {
		s.log.Warn("Reward notification failed", "message_id", message.ID, "error", err)
	}
}

// Unvalidate rejects the reversal explicitly. The wire protocol
// defines the frame and the role check still applies, but no reverse
// transition is ever persisted.
func (s *ValidationService) Unvalidate(ctx context.Context, messageID domain.MessageID, userID domain.UserID) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsValidator() {
		return fmt.Errorf("user %d: %w", userID, errors.ErrNotValidator)
	}
	if _, err := s.messages.GetMessage(ctx, messageID); err != nil {
		return err
	}
	return errors.ErrUnvalidateUnsupported
}
