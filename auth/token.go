// Package auth issues and verifies the session tokens handed out by
// the wallet handshake. A token binds one user identity to the
// websocket connection that presents it.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dchat/domain"
)

// SessionClaims defines the data stored inside the session JWT.
type SessionClaims struct {
	UserID int64  `json:"user_id"`
	Wallet string `json:"wallet"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates session tokens with an HS256 secret
// loaded from configuration.
type TokenIssuer struct {
	secret   []byte
	duration time.Duration
}

func NewTokenIssuer(secret string, duration time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), duration: duration}
}

// Generate creates a signed session token for an authenticated user.
func (t *TokenIssuer) Generate(user domain.User) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: int64(user.ID),
		Wallet: user.WalletAddress,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "dchat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses a token string and verifies its signature and
// expiration.
func (t *TokenIssuer) Validate(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
