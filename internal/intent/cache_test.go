package intent

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestCacheTTL(t *testing.T) {
	clk := newFakeClock()
	c := NewCache(10, 5*time.Minute)
	c.now = clk.Now

	want := ParsedIntent{Type: TypeQuery, Confidence: 0.9}
	c.Set("what's the weather", want)

	got, ok := c.Get("what's the weather")
	if !ok {
		t.Fatal("expected immediate cache hit")
	}
	if got.Type != want.Type || got.Confidence != want.Confidence {
		t.Errorf("got %+v, want %+v", got, want)
	}

	clk.Advance(5*time.Minute + time.Millisecond)
	if _, ok := c.Get("what's the weather"); ok {
		t.Error("entry past TTL should be absent")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be actively evicted, Len = %d", c.Len())
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	c := NewCache(10, time.Minute)
	c.Set("  Hello World  ", ParsedIntent{Type: TypeGreeting})
	if _, ok := c.Get("hello world"); !ok {
		t.Error("lookup should be case- and whitespace-insensitive")
	}
}

func TestCacheFIFOEviction(t *testing.T) {
	c := NewCache(3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(fmt.Sprintf("key-%d", i), ParsedIntent{Type: TypeQuery})
	}

	// Read the oldest entry; FIFO eviction must not promote it.
	if _, ok := c.Get("key-0"); !ok {
		t.Fatal("key-0 should be present")
	}

	c.Set("key-3", ParsedIntent{Type: TypeQuery})

	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get("key-0"); ok {
		t.Error("key-0 (first inserted) should have been evicted despite the recent read")
	}
	for _, k := range []string{"key-1", "key-2", "key-3"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be present", k)
		}
	}
}

func TestCacheOverwriteKeepsPosition(t *testing.T) {
	c := NewCache(2, time.Minute)
	c.Set("a", ParsedIntent{Type: TypeQuery})
	c.Set("b", ParsedIntent{Type: TypeQuery})
	c.Set("a", ParsedIntent{Type: TypeCommand})

	// "a" keeps its insertion slot, so it is still the eviction candidate.
	c.Set("c", ParsedIntent{Type: TypeQuery})
	if _, ok := c.Get("a"); ok {
		t.Error("overwritten entry should keep its insertion-order position")
	}
	if got, ok := c.Get("b"); !ok || got.Type != TypeQuery {
		t.Error("b should survive")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(10, time.Minute)
	c.Set("a", ParsedIntent{Type: TypeQuery})
	c.Set("b", ParsedIntent{Type: TypeQuery})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("cleared cache should miss")
	}
}
