package domain

// SessionID identifies one live transport connection. Sessions are
// in-memory only: they are destroyed on disconnect and the whole set is
// rebuilt from zero on process restart.
type SessionID string

type Session struct {
	ID     SessionID
	UserID UserID
}
