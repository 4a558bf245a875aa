package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"botcraft/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process UsageRepository for tests.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	left     map[string]int64
	leases   map[string]map[string]time.Time // owner -> lease -> expiry
	queries  map[string]int64
	activity map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		left:     make(map[string]int64),
		leases:   make(map[string]map[string]time.Time),
		queries:  make(map[string]int64),
		activity: make(map[string]time.Time),
	}
}

// SetQuota overwrites requests_left for an owner and drops their leases,
// the way a plan change does.
func (s *MemoryStore) SetQuota(ownerID string, left int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.left[ownerID] = left
	delete(s.leases, ownerID)
}

func (s *MemoryStore) Reserve(ctx context.Context, ownerID string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.left[ownerID]; !ok {
		return "", fmt.Errorf("user %s: %w", ownerID, domain.ErrNotFound)
	}
	if s.left[ownerID]-s.liveLeases(ownerID) <= 0 {
		return "", domain.ErrQuotaExceeded
	}
	if s.leases[ownerID] == nil {
		s.leases[ownerID] = make(map[string]time.Time)
	}
	id := uuid.NewString()
	s.leases[ownerID][id] = s.now().Add(ttl)
	return id, nil
}

// Commit charges even when the lease has lapsed: the answer was produced.
func (s *MemoryStore) Commit(ctx context.Context, ownerID, leaseID, botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.left[ownerID] <= 0 {
		return fmt.Errorf("charge %s: %w", ownerID, domain.ErrQuotaExceeded)
	}
	delete(s.leases[ownerID], leaseID)
	s.left[ownerID]--
	if botID != "" {
		s.queries[botID]++
		s.activity[botID] = s.now()
	}
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, ownerID, leaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.leases[ownerID], leaseID)
	return nil
}

// liveLeases drops expired leases and counts the rest. Callers hold mu.
func (s *MemoryStore) liveLeases(ownerID string) int64 {
	now := s.now()
	var n int64
	for id, expires := range s.leases[ownerID] {
		if !expires.After(now) {
			delete(s.leases[ownerID], id)
			continue
		}
		n++
	}
	return n
}

// Snapshot returns requests_left and the number of live leases for an owner.
func (s *MemoryStore) Snapshot(ownerID string) (left, inFlight int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.left[ownerID], s.liveLeases(ownerID)
}

// BotQueries returns the recorded query count for a bot.
func (s *MemoryStore) BotQueries(botID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[botID]
}
