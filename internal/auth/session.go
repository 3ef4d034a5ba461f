package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/hr-service/internal/domain"
)

// ErrSessionNotFound is returned for unknown, expired or revoked sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps server side sessions so they can be revoked on logout.
type SessionStore interface {
	Create(ctx context.Context, accountID int64) (domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type redisSessionStore struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSessionStore stores sessions as JSON values expiring after ttl.
func NewRedisSessionStore(client redis.Cmdable, ttl time.Duration) SessionStore {
	return &redisSessionStore{client: client, ttl: ttl, now: time.Now}
}

type sessionRecord struct {
	AccountID int64     `json:"account_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *redisSessionStore) Create(ctx context.Context, accountID int64) (domain.Session, error) {
	now := s.now().UTC()
	session := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	raw, err := json.Marshal(sessionRecord{AccountID: accountID, IssuedAt: session.IssuedAt, ExpiresAt: session.ExpiresAt})
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), raw, s.ttl).Err(); err != nil {
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &domain.Session{ID: id, AccountID: rec.AccountID, IssuedAt: rec.IssuedAt, ExpiresAt: rec.ExpiresAt}, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
