package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRUCache_GetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("empty cache returned a value")
	}
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}
	c.Set("a", "2")
	if v, _ := c.Get("a"); v != "2" {
		t.Fatalf("overwrite: Get(a) = %q", v)
	}

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Size != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.Advance(30 * time.Second)
	c.Set("b", "3")
	clock.Advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should be expired")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("CleanExpired() = %d, want 0 (a already removed by Get)", removed)
	}
	clock.Advance(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired() = %d, want 1", removed)
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 1 {
		t.Fatalf("Size() after delete = %d", c.Size())
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("Size() after purge = %d", c.Size())
	}
	c.Set("c", "3")
	if v, ok := c.Get("c"); !ok || v != "3" {
		t.Fatal("cache unusable after purge")
	}
}

func TestLRUCache_ZeroTTLDisables(t *testing.T) {
	c := NewLRUCache[int](4, 0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Fatal("zero TTL should disable caching")
	}
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := NewLRUCache[int](16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%32)
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.Purge()
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 16 {
		t.Fatalf("Size() = %d exceeds max", c.Size())
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c, clock := newTestCache(4, time.Second)
	c.Set("a", "1")
	clock.Advance(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	unstarted := NewManager(nil)
	unstarted.Stop()
}
