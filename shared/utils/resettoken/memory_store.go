package resettoken

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps tokens in process memory. Entries are lost on restart and
// are invisible to other instances, so it only suits single-instance deployments.
type MemoryStore struct {
	tokens map[string]*ResetToken
	mutex  sync.RWMutex
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*ResetToken),
		now:    time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, email, token string, expiresAt time.Time) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tokens[token] = &ResetToken{
		Email:   email,
		Token:   token,
		Expires: expiresAt,
		Used:    false,
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*ResetToken, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.tokens[token]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryStore) IsValid(_ context.Context, token string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entry, ok := s.tokens[token]
	if !ok {
		return false, nil
	}
	return entry.IsValidAt(s.now()), nil
}

func (s *MemoryStore) MarkAsUsed(_ context.Context, token string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return false, nil
	}
	entry.Used = true
	return true, nil
}

func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.tokens {
		if !entry.IsValidAt(now) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) GetAll(_ context.Context) ([]ResetToken, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := make([]ResetToken, 0, len(s.tokens))
	for _, entry := range s.tokens {
		all = append(all, *entry)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Expires.Before(all[j].Expires) })
	return all, nil
}
