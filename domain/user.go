// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID int64

// Role is externally assigned; the core only reads it.
type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleValidator Role = "VALIDATOR"
)

// User identity is wallet-based. The wallet address is unique,
// case-sensitive, and immutable after the first handshake.
type User struct {
	ID            UserID
	Username      string
	Avatar        string
	WalletAddress string
	Role          Role
	// TokenBalance mirrors an on-chain balance and is advisory only.
	TokenBalance int64
	CreatedAt    time.Time
}

func (u User) IsValidator() bool {
	return u.Role == RoleValidator
}
