package auth

import (
	"sync"
	"time"
)

// RevocationStore tracks revoked refresh token IDs (jti) until their natural
// expiry. Entries are pruned by a background sweeper so the map does not grow
// unboundedly.
type RevocationStore struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	done    chan struct{}
	once    sync.Once
}

func NewRevocationStore() *RevocationStore {
	s := &RevocationStore{
		revoked: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Revoke marks a token ID as revoked until expiresAt.
func (s *RevocationStore) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	s.revoked[jti] = expiresAt
	s.mu.Unlock()
}

// IsRevoked reports whether the token ID has been revoked and not yet expired.
func (s *RevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	expiresAt, ok := s.revoked[jti]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return time.Now().Before(expiresAt)
}

// Close stops the background sweeper.
func (s *RevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *RevocationStore) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for jti, expiresAt := range s.revoked {
				if now.After(expiresAt) {
					delete(s.revoked, jti)
				}
			}
			s.mu.Unlock()
		}
	}
}
