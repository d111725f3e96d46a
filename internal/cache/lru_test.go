package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUGetSetExpiry(t *testing.T) {
	c := NewLRU[string](2, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("SM1", "Kaydedildi!")
	if v, ok := c.Get("SM1"); !ok || v != "Kaydedildi!" {
		t.Fatalf("got %q %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("SM1"); ok {
		t.Fatal("expired entry returned")
	}
	if c.Len() != 0 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s missing", k)
		}
	}
	c.Delete("a")
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}
}

func TestCleanExpired(t *testing.T) {
	c := NewLRU[int](10, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("old1", 1)
	c.Set("old2", 2)
	now = now.Add(30 * time.Second)
	c.Set("new", 3)
	now = now.Add(45 * time.Second)

	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("live entry removed")
	}
}

func TestRunCleanupStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCleanup(ctx, time.Millisecond, NewLRU[int](1, time.Nanosecond))
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop")
	}
}
