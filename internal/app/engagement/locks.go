package engagement

import "sync"

// userLocks serializes read-modify-write sequences per learner.
// Entries are reference counted and dropped when the last holder unlocks.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// lock acquires the learner's lock and returns its release func.
func (l *userLocks) lock(email string) func() {
	l.mu.Lock()
	ul, ok := l.locks[email]
	if !ok {
		ul = &userLock{}
		l.locks[email] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, email)
		}
		l.mu.Unlock()
	}
}

// size returns how many learners currently hold or wait on a lock.
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
