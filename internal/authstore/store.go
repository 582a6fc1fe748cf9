// Package authstore holds the signed-in admin's credentials per console
// session. The token and profile are written together and cleared together.
package authstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"admin-console/internal/models"
)

// Fixed keys the credentials live under within a console session.
const (
	KeyToken        = "adminToken"
	KeyRefreshToken = "adminRefreshToken"
	KeyUser         = "adminUser"
)

var ErrNotFound = errors.New("no credentials for session")

type Store interface {
	// Save replaces the session's credentials in a single write.
	Save(ctx context.Context, sessionID string, creds *models.Credentials) error
	Load(ctx context.Context, sessionID string) (*models.Credentials, error)
	Clear(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	creds   models.Credentials
	expires time.Time
}

// MemoryStore keeps credentials in process. A zero ttl never expires.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, creds *models.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("credentials without access token")
	}
	entry := memoryEntry{creds: *creds}
	if s.ttl > 0 {
		entry.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[sessionID] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*models.Credentials, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !entry.expires.IsZero() && s.now().After(entry.expires) {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	creds := entry.creds
	return &creds, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
