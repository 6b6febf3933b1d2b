package session

import "sync"

// Cache mirrors the persistent store in memory. It is populated once from
// Store.LoadAll and then owned by the conversation handler.
// Cache is safe for concurrent use; the sessions it returns are not, and
// callers must hold the user's KeyLock while mutating one.
type Cache struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewCache creates a cache seeded with loaded sessions. The map is copied.
func NewCache(loaded map[int64]*Session) *Cache {
	sessions := make(map[int64]*Session, len(loaded))
	for id, s := range loaded {
		sessions[id] = s
	}
	return &Cache{sessions: sessions}
}

// Get returns the cached session for userID. If none exists, an empty one
// is created and registered; the bool reports whether that happened. The
// new session is not persisted until its first Save.
func (c *Cache) Get(userID int64) (*Session, bool) {
	c.mu.RLock()
	s, ok := c.sessions[userID]
	c.mu.RUnlock()
	if ok {
		return s, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have created it between the two locks.
	if s, ok := c.sessions[userID]; ok {
		return s, false
	}
	s = New(userID)
	c.sessions[userID] = s
	return s, true
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}
