package services

import "sync"

// userLocks serialises work per user id. Entries are dropped once nobody holds or waits on them.
type userLocks struct {
	mu sync.Mutex
	m  map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{m: make(map[int64]*userLock)}
}

// lock blocks until the caller owns id and returns the matching unlock.
func (l *userLocks) lock(id int64) func() {
	l.mu.Lock()
	ul, ok := l.m[id]
	if !ok {
		ul = &userLock{}
		l.m[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
