// Package convo holds per-conversation history in memory.
//
// Contexts are keyed by conversation key (call SID on the phone channel,
// user/session id on the web channel) and expire on a TTL measured from the
// last appended turn. Nothing is persisted; conversations are short-lived and
// loss on restart is acceptable.
package convo

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// SeedFunc produces the persona system turn a fresh context starts with.
// The seed turn is evicted only together with its whole context.
type SeedFunc func(key string) schema.Turn

// Store is the in-memory, time-bounded conversation context store.
type Store struct {
	ttl  time.Duration
	seed SeedFunc
	now  func() time.Time // replaceable in tests

	mu       sync.Mutex
	contexts map[string]*entry
}

type entry struct {
	turns        []schema.Turn
	lastActivity time.Time
}

// NewStore creates a Store. ttl zero falls back to 30 minutes; seed may be
// nil for contexts with no persona turn.
func NewStore(ttl time.Duration, seed SeedFunc) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{
		ttl:      ttl,
		seed:     seed,
		now:      time.Now,
		contexts: make(map[string]*entry),
	}
}

// Get returns a snapshot of the turns for key, creating a fresh seeded
// context when the key is unknown or its context has expired. Expiry is
// checked lazily here as well as by the periodic sweep.
func (s *Store) Get(key string) []schema.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	out := make([]schema.Turn, len(e.turns))
	copy(out, e.turns)
	return out
}

// Append adds a turn to the context for key, creating it if needed, and
// refreshes the activity timestamp. Turns are append-only; ordering is the
// literal prompt history sent to the LLM.
func (s *Store) Append(key string, turn schema.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.live(key)
	e.turns = append(e.turns, turn)
	e.lastActivity = s.now()
}

// Reset discards the context for key. The next access starts fresh.
func (s *Store) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, key)
}

// Len returns the number of turns currently held for key (0 for expired or
// unknown keys, not counting the seed turn a fresh access would create).
func (s *Store) Len(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.contexts[key]
	if !ok || s.expired(e) {
		return 0
	}
	return len(e.turns)
}

// ActiveConversations returns the number of unexpired contexts.
func (s *Store) ActiveConversations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.contexts {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// EvictExpired removes every expired context and returns how many went.
// Called by the periodic sweep; there is no exact-time deletion guarantee,
// only "not retained materially longer than TTL + sweep interval".
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, e := range s.contexts {
		if s.expired(e) {
			delete(s.contexts, key)
			evicted++
		}
	}
	if evicted > 0 {
		slog.Info("conversation sweep", "evicted", evicted, "active", len(s.contexts))
	}
	return evicted
}

// live returns the unexpired entry for key, replacing an expired or missing
// one with a fresh seeded context. Caller holds s.mu.
func (s *Store) live(key string) *entry {
	e, ok := s.contexts[key]
	if ok && !s.expired(e) {
		return e
	}

	e = &entry{lastActivity: s.now()}
	if s.seed != nil {
		e.turns = append(e.turns, s.seed(key))
	}
	s.contexts[key] = e
	return e
}

func (s *Store) expired(e *entry) bool {
	return s.now().Sub(e.lastActivity) > s.ttl
}
