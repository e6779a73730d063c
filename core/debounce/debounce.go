// Package debounce provides a minimum-interval gate for side effects that
// must not fire too often. It never sleeps or queues.
package debounce

import (
	"sync"
	"time"
)

const DefaultMinInterval = time.Second

type Gate struct {
	minInterval time.Duration
	now         func() time.Time

	mu            sync.Mutex
	lastAllowedAt time.Time
	allowedOnce   bool
}

type Option func(*Gate)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(gate *Gate) {
		if now != nil {
			gate.now = now
		}
	}
}

func New(minInterval time.Duration, options ...Option) *Gate {
	if minInterval < 0 {
		minInterval = 0
	}
	gate := &Gate{minInterval: minInterval, now: time.Now}
	for _, option := range options {
		option(gate)
	}
	return gate
}

// Attempt reports whether at least minInterval has passed since the last
// allowed call and, if so, records now. The first call is always allowed.
func (gate *Gate) Attempt() bool {
	gate.mu.Lock()
	defer gate.mu.Unlock()

	now := gate.now()
	if gate.allowedOnce && gate.lastAllowedAt.Add(gate.minInterval).After(now) {
		return false
	}
	gate.lastAllowedAt = now
	gate.allowedOnce = true
	return true
}

func (gate *Gate) MinInterval() time.Duration {
	return gate.minInterval
}

// LastAllowedAt is the zero time until the first allowed attempt.
func (gate *Gate) LastAllowedAt() time.Time {
	gate.mu.Lock()
	defer gate.mu.Unlock()
	return gate.lastAllowedAt
}
