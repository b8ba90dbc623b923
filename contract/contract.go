//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"dchat/domain"
	"dchat/domain/event"
)

// EventSink is one side of the fan-out: anything able to consume an
// outbound domain event, typically a connected session's buffered
// delivery channel.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Worker doesn't protect itself: supervision, restarts and panic
// recovery belong to the Supervisor.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IRegistry tracks live sessions: which user owns each session, which
// sessions are subscribed to each room, and who is online. All state is
// process-local and rebuilt from zero on restart.
type IRegistry interface {
	Register(sessionID domain.SessionID, userID domain.UserID, sink EventSink)
	Unregister(sessionID domain.SessionID) (domain.UserID, bool)
	UserOf(sessionID domain.SessionID) (domain.UserID, bool)
	IsOnline(userID domain.UserID) bool
	SessionsFor(userID domain.UserID) []domain.SessionID
	// Subscribe reports whether the session was newly attached to the
	// room; joining twice is a no-op.
	Subscribe(sessionID domain.SessionID, roomID domain.RoomID) bool
	Unsubscribe(sessionID domain.SessionID, roomID domain.RoomID)
	SinksForRoom(roomID domain.RoomID, exclude ...domain.SessionID) []EventSink
	SinksForUsers(userIDs ...domain.UserID) []EventSink
	AllSinks(exclude ...domain.SessionID) []EventSink
}

// Broadcaster fans an event out to a scope of sinks. Delivery is
// best-effort: no ordering across senders, no retries, no durability.
// Room-addressed events carry their own room through event.RoomScoped.
type Broadcaster interface {
	ToRoom(ctx context.Context, e event.RoomScoped, exclude ...domain.SessionID)
	ToUsers(ctx context.Context, e event.DomainEvent, userIDs ...domain.UserID)
	ToAll(ctx context.Context, e event.DomainEvent, exclude ...domain.SessionID)
}

// UserStore abstracts durable user persistence.
type UserStore interface {
	GetUser(ctx context.Context, id domain.UserID) (domain.User, error)
	GetByWallet(ctx context.Context, wallet string) (domain.User, error)
	// GetOrCreateByWallet is atomic at the store layer; created reports
	// whether a new user was persisted by this call.
	GetOrCreateByWallet(ctx context.Context, wallet, username, avatar string) (user domain.User, created bool, err error)
}

// RoomStore abstracts durable room persistence. CreateIfAbsent must be
// a single logical transaction guarded by the unique name constraint:
// a lost creation race surfaces errors.ErrRoomNameTaken, distinct from
// a generic failure, so the caller can re-fetch instead of erroring.
type RoomStore interface {
	GetRoom(ctx context.Context, id domain.RoomID) (domain.Room, error)
	GetRoomByName(ctx context.Context, name string) (domain.Room, error)
	CreateIfAbsent(ctx context.Context, room domain.Room) (domain.Room, error)
}

// MessageStore abstracts durable message persistence.
// TransitionValidation is a conditional write: it succeeds only when
// the message is still in the from state, guaranteeing at-most-one
// winner between racing validators.
type MessageStore interface {
	GetMessage(ctx context.Context, id domain.MessageID) (domain.Message, error)
	StoreMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	RoomMessages(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	TransitionValidation(ctx context.Context, id domain.MessageID,
		from, to domain.ValidationState, validatedBy *domain.UserID) (domain.Message, error)
}

// RewardGrant is handed to the external token-minting collaborator.
type RewardGrant struct {
	MessageID domain.MessageID
	RoomID    domain.RoomID
	Recipient domain.UserID
	Wallet    string
}

// TokenRewardNotifier is fire-and-forget from the state machine's
// perspective: success means "handed to the collaborator", not "tokens
// confirmed on-chain".
type TokenRewardNotifier interface {
	RewardGranted(ctx context.Context, grant RewardGrant) error
}
