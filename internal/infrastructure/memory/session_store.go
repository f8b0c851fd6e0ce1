package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

type sessionEntry struct {
	value     []byte
	expiresAt time.Time
}

// SessionStore implements port.SessionStore with lazy expiry: an entry past
// its deadline is dropped the next time it is read.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	now     func() time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock lets tests drive expiry.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{entries: make(map[string]sessionEntry), now: now}
}

func (s *SessionStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok && !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	if !ok {
		return nil, apperr.NotFound("session %s not found or expired", key)
	}
	return append([]byte(nil), e.value...), nil
}

// Set stores value; a ttl of zero never expires.
func (s *SessionStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return apperr.Validation("ttl must not be negative, got %s", ttl)
	}
	e := sessionEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
