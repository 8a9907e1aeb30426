package convo

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

func personaSeed(key string) schema.Turn {
	return schema.Turn{Role: schema.RoleSystem, Content: "You are JARVIS."}
}

// newTestStore returns a store with a controllable clock.
func newTestStore(t *testing.T, ttl time.Duration) (*Store, *time.Time) {
	t.Helper()
	now := time.Date(2025, 8, 15, 9, 0, 0, 0, time.UTC)
	s := NewStore(ttl, personaSeed)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestGet_SeedsPersonaTurn(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	turns := s.Get("web:alice")
	if len(turns) != 1 {
		t.Fatalf("fresh context should hold only the persona turn, got %d turns", len(turns))
	}
	if turns[0].Role != schema.RoleSystem {
		t.Errorf("first turn must be the system/persona turn, got role %q", turns[0].Role)
	}
}

func TestAppend_OrderingPreserved(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	key := "call:CA123"
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "first"})
	s.Append(key, schema.Turn{Role: schema.RoleAssistant, Content: "second"})
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "third"})

	turns := s.Get(key)
	want := []string{"You are JARVIS.", "first", "second", "third"}
	if len(turns) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(turns))
	}
	for i, w := range want {
		if turns[i].Content != w {
			t.Errorf("turn %d: expected %q, got %q", i, w, turns[i].Content)
		}
	}
}

func TestTTL_Eviction(t *testing.T) {
	s, now := newTestStore(t, 30*time.Minute)
	key := "web:alice"
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "remember me"})
	s.Append(key, schema.Turn{Role: schema.RoleAssistant, Content: "noted"})
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "still there?"})

	*now = now.Add(31 * time.Minute)

	turns := s.Get(key)
	if len(turns) != 1 || turns[0].Role != schema.RoleSystem {
		t.Fatalf("expired context should come back fresh with only the persona turn, got %d turns", len(turns))
	}
	for _, turn := range turns {
		if turn.Content == "remember me" {
			t.Error("old turns must not survive TTL expiry")
		}
	}
}

func TestTTL_ActivityRefreshes(t *testing.T) {
	s, now := newTestStore(t, 30*time.Minute)
	key := "web:alice"
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "one"})

	*now = now.Add(20 * time.Minute)
	s.Append(key, schema.Turn{Role: schema.RoleUser, Content: "two"})

	*now = now.Add(20 * time.Minute)
	// 40 minutes since the first turn, 20 since the last: still live.
	turns := s.Get(key)
	if len(turns) != 3 {
		t.Fatalf("activity should refresh the TTL, got %d turns", len(turns))
	}
}

func TestEvictExpired_Sweep(t *testing.T) {
	s, now := newTestStore(t, 30*time.Minute)
	s.Append("a", schema.Turn{Role: schema.RoleUser, Content: "x"})
	s.Append("b", schema.Turn{Role: schema.RoleUser, Content: "y"})

	*now = now.Add(10 * time.Minute)
	s.Append("c", schema.Turn{Role: schema.RoleUser, Content: "z"})

	*now = now.Add(25 * time.Minute)
	// a and b are 35 minutes stale, c only 25.
	if evicted := s.EvictExpired(); evicted != 2 {
		t.Errorf("expected 2 evictions, got %d", evicted)
	}
	if s.ActiveConversations() != 1 {
		t.Errorf("expected 1 active conversation, got %d", s.ActiveConversations())
	}
}

func TestReset(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	s.Append("k", schema.Turn{Role: schema.RoleUser, Content: "secret"})
	s.Reset("k")
	turns := s.Get("k")
	if len(turns) != 1 || turns[0].Role != schema.RoleSystem {
		t.Errorf("reset context should be fresh, got %v", turns)
	}
}

func TestConcurrent_CrossKeyIsolation(t *testing.T) {
	s := NewStore(30*time.Minute, personaSeed)

	var wg sync.WaitGroup
	for k := 0; k < 8; k++ {
		key := fmt.Sprintf("key-%d", k)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Append(key, schema.Turn{Role: schema.RoleUser, Content: fmt.Sprintf("%s/%d", key, i)})
				s.Get(key)
			}
		}()
	}
	wg.Wait()

	for k := 0; k < 8; k++ {
		key := fmt.Sprintf("key-%d", k)
		turns := s.Get(key)
		if len(turns) != 51 { // persona + 50 appends
			t.Errorf("%s: expected 51 turns, got %d", key, len(turns))
		}
		for i, turn := range turns[1:] {
			want := fmt.Sprintf("%s/%d", key, i)
			if turn.Content != want {
				t.Fatalf("%s: turn %d corrupted: %q", key, i, turn.Content)
			}
		}
	}
}

func TestGet_ReturnsSnapshot(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	s.Append("k", schema.Turn{Role: schema.RoleUser, Content: "original"})

	turns := s.Get("k")
	turns[1].Content = "mutated"

	if again := s.Get("k"); again[1].Content != "original" {
		t.Error("Get must return a snapshot, not the live slice")
	}
}
