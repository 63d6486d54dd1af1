// Package session holds the in-process mapping from bearer tokens to
// user identities. Sessions live for the process lifetime and are not
// persisted across restarts.
package session

import "sync"

// Store maps opaque session tokens to user ids. Safe for concurrent
// use by request handlers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]int64
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]int64),
	}
}

// Put binds token to userID, replacing any existing binding.
func (s *Store) Put(token string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = userID
}

// Get resolves token to the bound user id.
func (s *Store) Get(token string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[token]
	return userID, ok
}

// Delete removes the binding for token. Deleting an unknown token is a
// no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear drops all sessions. Called at shutdown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]int64)
}
