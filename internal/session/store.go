package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultTTL = time.Hour

// Store keeps live sessions in memory and drops them after an idle TTL.
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore creates a Store; ttl <= 0 selects DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.close()
		}
	})
	return &Store{cache: c, ttl: ttl}
}

// Create starts a new session with a fresh random ID.
func (st *Store) Create() *Session {
	s := newSession(uuid.NewString())
	st.cache.Set(s.ID, s, st.ttl)
	return s
}

// Get returns the session for id and refreshes its TTL.
func (st *Store) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.cache.Set(id, s, st.ttl)
	return s, true
}

// GetOrCreate returns the session for id, or a new one when id is unknown
// or expired. The boolean reports whether a session was created.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	if s, ok := st.Get(id); ok {
		return s, false
	}
	return st.Create(), true
}

// Delete discards a session.
func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}

// Count reports the number of live sessions.
func (st *Store) Count() int {
	return st.cache.ItemCount()
}
