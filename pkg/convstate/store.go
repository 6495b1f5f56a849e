package convstate

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps hot conversation state in memory. The persistence layer remains
// the source of truth; this cache avoids a database round-trip on every turn.
type Store struct {
	cache *cache.Cache
}

func NewStore() *Store {
	// Conversations idle for an hour fall back to the database copy.
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &Store{cache: c}
}

func (s *Store) Save(conversationID string, state State) {
	s.cache.Set(conversationID, state, cache.DefaultExpiration)
}

func (s *Store) Get(conversationID string) (State, bool) {
	if x, found := s.cache.Get(conversationID); found {
		return x.(State), true
	}
	return State{}, false
}

func (s *Store) Delete(conversationID string) {
	s.cache.Delete(conversationID)
}

// Locker serializes the read-modify-write of one conversation's state so a
// double-submitted turn cannot lose an update. Independent conversations
// proceed concurrently.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock acquires the per-conversation mutex and returns its release func.
func (l *Locker) Lock(conversationID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[conversationID]
	if !ok {
		entry = &lockEntry{}
		l.locks[conversationID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, conversationID)
		}
		l.mu.Unlock()
	}
}
