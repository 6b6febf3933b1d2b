package session

import "sync"

// KeyLock provides per-user serialization: messages from the same user are
// processed one at a time while different users proceed in parallel.
//
// A global mutex protects the lane map; each lane has its own mutex. The
// global mutex is held only briefly to look up or create a lane, and a lane
// is removed once nobody holds or waits on it.
type KeyLock struct {
	mu    sync.Mutex
	lanes map[int64]*lane
}

// lane counts goroutines that acquired (or are waiting on) it.
type lane struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock creates a ready-to-use KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{lanes: make(map[int64]*lane)}
}

// Acquire locks the lane for userID. The caller must call Release with the
// same key when done.
func (l *KeyLock) Acquire(userID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[userID]
	if !ok {
		ln = &lane{}
		l.lanes[userID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other users are not blocked.
	ln.mu.Lock()
}

// Release unlocks the lane for userID.
func (l *KeyLock) Release(userID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[userID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, userID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// Len returns the number of lanes currently held or awaited.
func (l *KeyLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
