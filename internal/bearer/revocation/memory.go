package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revoked token IDs in process memory. Suitable for
// single-instance deployments and tests; state is lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time // jti -> entry expiry
	clock   Clock
}

// MemoryOption configures a MemoryStore instance.
type MemoryOption func(*MemoryStore)

// WithMemoryClock sets the clock function for testability.
func WithMemoryClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Revoke adds a token to the revocation list with TTL.
func (s *MemoryStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = s.clock().Add(ttl)
	return nil
}

// IsRevoked checks if a token is in the revocation list. Expired entries
// are removed on read.
func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt, ok := s.revoked[jti]
	if !ok {
		return false, nil
	}
	if s.clock().After(expiresAt) {
		delete(s.revoked, jti)
		return false, nil
	}
	return true, nil
}

// RevokeBatch revokes multiple tokens with a shared TTL.
func (s *MemoryStore) RevokeBatch(_ context.Context, jtis []string, ttl time.Duration) error {
	if len(jtis) == 0 {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	expiresAt := s.clock().Add(ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, jti := range jtis {
		if jti != "" {
			s.revoked[jti] = expiresAt
		}
	}
	return nil
}
