// Package dedup provides a time-windowed cache of recently seen message
// fingerprints, used to suppress duplicate deliveries of the same job lead.
//
// Group messages are frequently cross-posted to several groups within seconds,
// and the gateway may redeliver a webhook; both cases must not trigger a second
// round of evaluations or notifications.
package dedup

import (
	"log/slog"
	"sync"
	"time"
)

// Constants for cache configuration
const (
	// DefaultWindow is the span within which identical fingerprints are duplicates.
	DefaultWindow = 120 * time.Second
	// DefaultMaxEntries bounds the cache between eviction passes.
	DefaultMaxEntries = 4096
)

// Opts holds configuration options for the cache.
type Opts struct {
	MaxEntries int
	Clock      func() time.Time
}

// Option defines a configuration option for the cache.
type Option func(*Opts)

// WithMaxEntries sets the maximum number of fingerprints retained at once.
func WithMaxEntries(n int) Option {
	return func(o *Opts) {
		o.MaxEntries = n
	}
}

// WithClock sets the time source, used by tests to control the window.
func WithClock(clock func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = clock
	}
}

// Cache is a process-wide set of fingerprint -> last-seen mappings.
// All methods are safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	window     time.Duration
	maxEntries int
	now        func() time.Time
	entries    map[string]time.Time
}

// New creates a cache with the given dedup window, applying any provided options.
func New(window time.Duration, opts ...Option) *Cache {
	cfg := Opts{MaxEntries: DefaultMaxEntries, Clock: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		window:     window,
		maxEntries: cfg.MaxEntries,
		now:        cfg.Clock,
		entries:    make(map[string]time.Time),
	}
}

// Observe reports whether fingerprint was seen within the window. The check
// and the recording are one atomic step: of two concurrent observations of the
// same fingerprint, exactly one returns false. The timestamp is refreshed on
// every observation, duplicate or not.
func (c *Cache) Observe(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	seen, ok := c.entries[fingerprint]
	c.entries[fingerprint] = now
	if ok && now.Sub(seen) <= c.window {
		return true
	}
	if !ok && len(c.entries) > c.maxEntries {
		c.evictOldestLocked()
	}
	return false
}

// EvictExpired removes every entry whose age exceeds the window. Called once
// per inbound batch; also safe to run on a timer.
func (c *Cache) EvictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, seen := range c.entries {
		if now.Sub(seen) > c.window {
			delete(c.entries, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Info("Cache.EvictExpired: removed expired fingerprints", "removed", removed, "remaining", len(c.entries))
	}
}

// Len returns the number of fingerprints currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked drops oldest entries until the bound holds. Holds off
// unbounded growth under sustained distinct-message load between eviction
// passes. Caller must hold c.mu.
func (c *Cache) evictOldestLocked() {
	for len(c.entries) > c.maxEntries {
		var oldestKey string
		var oldestSeen time.Time
		first := true
		for key, seen := range c.entries {
			if first || seen.Before(oldestSeen) {
				oldestKey, oldestSeen = key, seen
				first = false
			}
		}
		delete(c.entries, oldestKey)
	}
	slog.Warn("Cache.evictOldest: entry bound reached, dropped oldest fingerprints", "max_entries", c.maxEntries)
}
