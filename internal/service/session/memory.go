package session

import (
	"context"
	"sync"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
)

// MemoryStore keeps sessions in a process-local map. Nothing is ever evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]interview.Session
	locks    *keyedLocker
}

// NewMemoryStore bootstraps an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]interview.Session),
		locks:    newKeyedLocker(),
	}
}

// Create registers a new session.
func (s *MemoryStore) Create(_ context.Context, session interview.Session) error {
	if session.ID == "" {
		return ErrSessionIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return ErrSessionExists
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get returns a copy of the committed session state.
func (s *MemoryStore) Get(_ context.Context, id string) (interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return interview.Session{}, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Update runs fn on a copy under the session's writer lock and commits it on success.
func (s *MemoryStore) Update(ctx context.Context, id string, fn MutateFunc) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	working, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := fn(&working); err != nil {
		return err
	}
	working.ID = id

	s.mu.Lock()
	s.sessions[id] = working
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
