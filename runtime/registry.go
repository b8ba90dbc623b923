// Package runtime owns the process-local coordination state: which
// sessions are connected, who they belong to, and which rooms they
// subscribe to. Nothing here is persisted; presence is rebuilt from
// zero on restart and callers must not assume cross-restart durability.
package runtime

import (
	"sync"

	"dchat/contract"
	"dchat/domain"
)

type sessionSet map[domain.SessionID]struct{}

// Registry maps live transport sessions to authenticated users and
// room subscriptions. It is safe for concurrent use; all maps are
// mutated under one lock so a session can never be half-registered.
type Registry struct {
	mu           sync.RWMutex
	sinks        map[domain.SessionID]contract.EventSink
	users        map[domain.SessionID]domain.UserID
	userSessions map[domain.UserID]sessionSet
	roomMembers  map[domain.RoomID]sessionSet
	// rooms a session joined, for cleanup on disconnect
	joined map[domain.SessionID]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:        make(map[domain.SessionID]contract.EventSink),
		users:        make(map[domain.SessionID]domain.UserID),
		userSessions: make(map[domain.UserID]sessionSet),
		roomMembers:  make(map[domain.RoomID]sessionSet),
		joined:       make(map[domain.SessionID]map[domain.RoomID]struct{}),
	}
}

func (r *Registry) Register(sessionID domain.SessionID, userID domain.UserID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks[sessionID] = sink
	r.users[sessionID] = userID
	if _, ok := r.userSessions[userID]; !ok {
		r.userSessions[userID] = make(sessionSet)
	}
	r.userSessions[userID][sessionID] = struct{}{}
}

// Unregister removes a session and detaches it from every room it
// joined. It returns the owning user and whether the session existed.
// Empty sets are removed so the maps don't leak over time.
func (r *Registry) Unregister(sessionID domain.SessionID) (domain.UserID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.users[sessionID]
	if !ok {
		return 0, false
	}

	delete(r.sinks, sessionID)
	delete(r.users, sessionID)

	if sessions, ok := r.userSessions[userID]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.userSessions, userID)
		}
	}

	for roomID := range r.joined[sessionID] {
		if members, ok := r.roomMembers[roomID]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(r.roomMembers, roomID)
			}
		}
	}
	delete(r.joined, sessionID)

	return userID, true
}

func (r *Registry) UserOf(sessionID domain.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.users[sessionID]
	return userID, ok
}

// IsOnline reports whether the user has at least one live session.
func (r *Registry) IsOnline(userID domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.userSessions[userID]) > 0
}

func (r *Registry) SessionsFor(userID domain.UserID) []domain.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]domain.SessionID, 0, len(r.userSessions[userID]))
	for id := range r.userSessions[userID] {
		sessions = append(sessions, id)
	}
	return sessions
}

// Subscribe attaches a session to a room's subscriber set. It reports
// whether the session was newly attached: joining twice is a no-op and
// returns false, so the caller emits at most one join notification.
func (r *Registry) Subscribe(sessionID domain.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, connected := r.sinks[sessionID]; !connected {
		return false
	}
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(sessionSet)
	}
	if _, already := r.roomMembers[roomID][sessionID]; already {
		return false
	}
	r.roomMembers[roomID][sessionID] = struct{}{}

	if _, ok := r.joined[sessionID]; !ok {
		r.joined[sessionID] = make(map[domain.RoomID]struct{})
	}
	r.joined[sessionID][roomID] = struct{}{}
	return true
}

func (r *Registry) Unsubscribe(sessionID domain.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	if rooms, ok := r.joined[sessionID]; ok {
		delete(rooms, roomID)
	}
}

// SinksForRoom resolves the room's subscriber set into live sinks,
// skipping any excluded sessions (typically the sender).
func (r *Registry) SinksForRoom(roomID domain.RoomID, exclude ...domain.SessionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	excluded := toSet(exclude)
	var sinks []contract.EventSink
	for sessionID := range members {
		if _, skip := excluded[sessionID]; skip {
			continue
		}
		if sink, live := r.sinks[sessionID]; live {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// SinksForUsers resolves every live session of the given users. Used
// for the synthetic pair channel of private-room creation: both users
// receive the room before either has joined it.
func (r *Registry) SinksForUsers(userIDs ...domain.UserID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, userID := range userIDs {
		for sessionID := range r.userSessions[userID] {
			if sink, live := r.sinks[sessionID]; live {
				sinks = append(sinks, sink)
			}
		}
	}
	return sinks
}

func (r *Registry) AllSinks(exclude ...domain.SessionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	excluded := toSet(exclude)
	sinks := make([]contract.EventSink, 0, len(r.sinks))
	for sessionID, sink := range r.sinks {
		if _, skip := excluded[sessionID]; skip {
			continue
		}
		sinks = append(sinks, sink)
	}
	return sinks
}

func toSet(ids []domain.SessionID) sessionSet {
	set := make(sessionSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
