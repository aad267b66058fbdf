package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestObserveWithinWindowIsDuplicate(t *testing.T) {
	clock := newFakeClock()
	c := New(120*time.Second, WithClock(clock.Now))

	if c.Observe("recovery needed LS1") {
		t.Fatal("first observation should not be a duplicate")
	}
	clock.Advance(60 * time.Second)
	if !c.Observe("recovery needed LS1") {
		t.Fatal("second observation within window should be a duplicate")
	}
}

func TestObserveOutsideWindowIsNovel(t *testing.T) {
	clock := newFakeClock()
	c := New(120*time.Second, WithClock(clock.Now))

	if c.Observe("recovery needed LS1") {
		t.Fatal("first observation should not be a duplicate")
	}
	clock.Advance(121 * time.Second)
	if c.Observe("recovery needed LS1") {
		t.Fatal("observation after window expiry should not be a duplicate")
	}
}

func TestObserveRefreshesTimestamp(t *testing.T) {
	clock := newFakeClock()
	c := New(120*time.Second, WithClock(clock.Now))

	c.Observe("job")
	clock.Advance(90 * time.Second)
	c.Observe("job") // duplicate, refreshes
	clock.Advance(90 * time.Second)
	// 180s after first sighting but only 90s after refresh
	if !c.Observe("job") {
		t.Fatal("refreshed entry should still count as duplicate")
	}
}

func TestEmptyFingerprintIsValidKey(t *testing.T) {
	c := New(120 * time.Second)
	if c.Observe("") {
		t.Fatal("first empty fingerprint should not be a duplicate")
	}
	if !c.Observe("") {
		t.Fatal("second empty fingerprint should be a duplicate")
	}
}

func TestEvictExpired(t *testing.T) {
	clock := newFakeClock()
	c := New(120*time.Second, WithClock(clock.Now))

	c.Observe("old")
	clock.Advance(100 * time.Second)
	c.Observe("fresh")
	clock.Advance(30 * time.Second)
	c.EvictExpired()

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry after eviction, got %d", c.Len())
	}
	// "old" expired, so it must read as novel again; "fresh" must not.
	if c.Observe("old") {
		t.Error("evicted entry should not be a duplicate")
	}
	if !c.Observe("fresh") {
		t.Error("unexpired entry should survive eviction")
	}
}

func TestMaxEntriesBoundEvictsOldest(t *testing.T) {
	clock := newFakeClock()
	c := New(time.Hour, WithClock(clock.Now), WithMaxEntries(3))

	for i := 0; i < 4; i++ {
		c.Observe(fmt.Sprintf("job-%d", i))
		clock.Advance(time.Second)
	}
	if c.Len() != 3 {
		t.Fatalf("expected bound of 3 entries, got %d", c.Len())
	}
	// job-0 was oldest and must be gone; job-3 is the newest and must remain.
	if c.Observe("job-0") {
		t.Error("oldest entry should have been dropped")
	}
	if !c.Observe("job-3") {
		t.Error("newest entry should have been retained")
	}
}

func TestObserveIsAtomicUnderConcurrency(t *testing.T) {
	c := New(120 * time.Second)
	const workers = 32

	var wg sync.WaitGroup
	novel := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Observe("same message") {
				novel <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(novel)

	count := 0
	for range novel {
		count++
	}
	if count != 1 {
		t.Fatalf("exactly one concurrent observation should be novel, got %d", count)
	}
}
