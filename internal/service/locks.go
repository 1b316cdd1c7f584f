package service

import "sync"

// sessionLocks serializes writes per session id. Two concurrent posts to the
// same session must not interleave their replace-on-write persists, so every
// mutating controller call takes the session's lock for the whole turn.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*lockEntry)}
}

// acquire locks the mutex for id and returns a release function. Entries are
// refcounted and dropped from the map when the last holder releases, so the
// map only holds ids with an in-flight or waiting turn.
func (l *sessionLocks) acquire(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
