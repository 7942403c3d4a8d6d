// Package ratelimit bounds contact submissions per client IP with a
// reset-by-window counter. State lives behind the Store interface so the
// in-process map can be swapped for a shared store without touching callers.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of submissions allowed per window
	DefaultLimit = 5
	// DefaultWindow is the length of one rate window
	DefaultWindow = 15 * time.Minute
)

// Entry is the counter of one IP. It is logically expired once now is after
// ResetAt and is then overwritten with a fresh window.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store persists one Entry per key
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller has to wait for a fresh window
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if wait := d.ResetAt.Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Limiter enforces Limit requests per Window for each key
type Limiter struct {
	mu     sync.Mutex
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithClock replaces time.Now, used by tests to move across windows
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter. A nil store falls back to a MemoryStore and
// non-positive limit or window fall back to the defaults.
func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured quota per window
func (l *Limiter) Limit() int {
	return l.limit
}

// Allow records a request for key if the quota permits it. A denied request
// does not increment the counter.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	// The mutex serialises the read-modify-write so two concurrent requests
	// cannot both pass at the boundary count.
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	entry, found, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read rate limit entry: %w", err)
	}

	if !found || now.After(entry.ResetAt) {
		entry = Entry{Count: 1, ResetAt: now.Add(l.window)}
		if err := l.store.Set(ctx, key, entry); err != nil {
			return Decision{}, fmt.Errorf("failed to write rate limit entry: %w", err)
		}
		return l.decision(true, entry), nil
	}

	if entry.Count >= l.limit {
		return l.decision(false, entry), nil
	}

	entry.Count++
	if err := l.store.Set(ctx, key, entry); err != nil {
		return Decision{}, fmt.Errorf("failed to write rate limit entry: %w", err)
	}
	return l.decision(true, entry), nil
}

func (l *Limiter) decision(allowed bool, entry Entry) Decision {
	remaining := l.limit - entry.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		ResetAt:   entry.ResetAt,
	}
}
