package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultResetTokenTTL = 30 * time.Minute

// ResetTokenStore keeps single-use password-reset tokens in Redis with a TTL.
type ResetTokenStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewResetTokenStore connects to Redis for reset-token storage.
func NewResetTokenStore(addr, password string) (*ResetTokenStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("reset token redis addr is required")
	}
	return &ResetTokenStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "echomechanic:auth:reset",
		ttl:       defaultResetTokenTTL,
	}, nil
}

// Create issues a token bound to email, valid for the store TTL.
func (s *ResetTokenStore) Create(email string) (string, error) {
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(token), email, s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates and invalidates a token, returning the bound email.
// The second result is false when the token is unknown or expired.
func (s *ResetTokenStore) Consume(token string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	email, err := s.client.GetDel(ctx, s.key(token)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, true, nil
}

func (s *ResetTokenStore) key(token string) string {
	return s.keyPrefix + ":" + token
}
