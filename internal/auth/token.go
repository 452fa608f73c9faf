// Package auth issues and resolves participant tokens. A token binds a
// participant id and role to one game; the engine never authenticates.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"live-quiz-service/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongGame    = errors.New("token issued for another game")
)

// Identity is a resolved caller.
type Identity struct {
	ParticipantID string
	GameID        string
	Type          domain.ParticipantType
}

// Claims is the token payload.
type Claims struct {
	jwt.RegisteredClaims
	GameID string `json:"gid"`
	Role   string `json:"role"`
}

// Resolver turns a token into an Identity.
type Resolver interface {
	Resolve(token string) (Identity, error)
}

// Tokens signs HS256 participant tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return NewTokensWithClock(secret, ttl, time.Now)
}

// NewTokensWithClock is for deterministic tests.
func NewTokensWithClock(secret string, ttl time.Duration, now func() time.Time) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: now}
}

// Issue signs a token for a participant of a game.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ParticipantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		GameID: id.GameID,
		Role:   string(id.Type),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve validates a token and returns the identity it carries.
func (t *Tokens) Resolve(token string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredToken
		}
		return Identity{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || claims.GameID == "" {
		return Identity{}, ErrInvalidToken
	}
	role := domain.ParticipantType(claims.Role)
	if role != domain.ParticipantHost && role != domain.ParticipantPlayer {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ParticipantID: claims.Subject, GameID: claims.GameID, Type: role}, nil
}

// ForGame resolves a token and checks it belongs to gameID.
func ForGame(r Resolver, token, gameID string) (Identity, error) {
	id, err := r.Resolve(token)
	if err != nil {
		return Identity{}, err
	}
	if id.GameID != gameID {
		return Identity{}, ErrWrongGame
	}
	return id, nil
}
