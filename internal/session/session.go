package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers every authentication failure: bad signature,
	// expired token, or a token superseded by a newer login.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrNoSession is returned by stores when a user has no live token.
	ErrNoSession = errors.New("no active session")
)

// Store records the single current token per user. Logging in overwrites the
// record, which is what invalidates every earlier session for that user.
type Store interface {
	SetCurrent(ctx context.Context, userID int64, token string) error
	Current(ctx context.Context, userID int64) (string, error)
}

type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager mints HS256 tokens and validates them against the store, so a
// token is only good while it is still the user's current one.
type Manager struct {
	secret []byte
	store  Store
	ttl    time.Duration
}

func NewManager(secret string, store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), store: store, ttl: ttl}
}

// Issue mints a fresh token and records it as the user's current session.
// At most one token is live per user; any previously issued token stops
// validating as soon as this returns.
func (m *Manager) Issue(ctx context.Context, userID int64, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chatsync",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	if err := m.store.SetCurrent(ctx, userID, signed); err != nil {
		return "", err
	}
	return signed, nil
}

// Validate returns the user id and username carried by a live token.
func (m *Manager) Validate(ctx context.Context, tokenString string) (int64, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}

	current, err := m.store.Current(ctx, claims.UserID)
	if err != nil || current != tokenString {
		return 0, "", ErrInvalidToken
	}
	return claims.UserID, claims.Username, nil
}
