package service

import "sync"

// ownerLocks hands out one mutex per owner id so capacity checks and
// the writes that follow them execute atomically per owner. Locks are
// never reclaimed; the map grows with the number of distinct owners,
// which is bounded by the user table.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[int64]*sync.Mutex)}
}

func (l *ownerLocks) get(ownerID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	return m
}
