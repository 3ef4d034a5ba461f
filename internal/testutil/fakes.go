package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/hr-service/internal/auth"
	"github.com/spec-kit/hr-service/internal/domain"
	"github.com/spec-kit/hr-service/internal/storage"
)

// Sessions is an in-memory auth.SessionStore.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	TTL      time.Duration
}

// NewSessions returns an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: map[string]domain.Session{}, TTL: time.Hour}
}

func (s *Sessions) Create(_ context.Context, accountID int64) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	session := domain.Session{ID: uuid.NewString(), AccountID: accountID, IssuedAt: now, ExpiresAt: now.Add(s.TTL)}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *Sessions) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *Sessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Limiter counts attempts per key and refuses once Limit is exceeded.
// A zero Limit allows everything.
type Limiter struct {
	mu       sync.Mutex
	Limit    int
	attempts map[string]int
}

func (l *Limiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attempts == nil {
		l.attempts = map[string]int{}
	}
	l.attempts[key]++
	return l.Limit == 0 || l.attempts[key] <= l.Limit, nil
}

// Avatars is an in-memory storage.AvatarStore that records what happened.
type Avatars struct {
	mu      sync.Mutex
	Files   map[string][]byte
	Removed []string
	SaveErr error
	// RemoveErr makes Remove fail without deleting anything.
	RemoveErr error
	seq       int
}

// NewAvatars returns an empty avatar store.
func NewAvatars() *Avatars {
	return &Avatars{Files: map[string][]byte{}}
}

func (a *Avatars) Save(_ context.Context, upload storage.AvatarUpload) (string, error) {
	if a.SaveErr != nil {
		return "", a.SaveErr
	}
	data, err := io.ReadAll(upload.Content)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	path := fmt.Sprintf("avatars/%d-%s", a.seq, upload.Filename)
	a.Files[path] = data
	return path, nil
}

func (a *Avatars) Remove(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.RemoveErr != nil {
		return a.RemoveErr
	}
	delete(a.Files, path)
	a.Removed = append(a.Removed, path)
	return nil
}

// Has reports whether path is currently stored.
func (a *Avatars) Has(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.Files[path]
	return ok
}

var (
	_ auth.SessionStore   = (*Sessions)(nil)
	_ auth.LoginLimiter   = (*Limiter)(nil)
	_ storage.AvatarStore = (*Avatars)(nil)
)
