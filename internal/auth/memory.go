package auth

import (
	"context"
	"sync"
)

var _ UserStore = (*MemoryStore)(nil)

// MemoryStore is an in-process UserStore used by tests and by deployments
// that run without Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*User
	byAccount map[string]string
	byName    map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*User),
		byAccount: make(map[string]string),
		byName:    make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[u.Name]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.byAccount[u.Account]; ok {
		return ErrAlreadyExists
	}
	clone := *u
	s.byID[u.ID] = &clone
	s.byAccount[u.Account] = u.ID
	s.byName[u.Name] = u.ID
	return nil
}

func (s *MemoryStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *MemoryStore) FindByAccount(_ context.Context, account string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byAccount[account]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *s.byID[id]
	return &clone, nil
}

func (s *MemoryStore) NameTaken(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byName[name]
	return ok, nil
}

// Delete removes a user. Tests use it to simulate records disappearing
// underneath a live session.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byAccount, u.Account)
	delete(s.byName, u.Name)
	delete(s.byID, id)
}
