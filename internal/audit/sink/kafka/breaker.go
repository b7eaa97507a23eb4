package kafka

import (
	"sync"
	"time"
)

// cooldownBreaker drops publishes while the broker is unhealthy. Unlike the
// probe-driven breaker in pkg/platform/circuit it reopens by itself: after
// the cooldown the next Allow lets one publish through to test the water.
type cooldownBreaker struct {
	mu sync.RWMutex

	threshold int
	cooldown  time.Duration

	failures  int
	openUntil time.Time
	open      bool
}

func newCooldownBreaker(threshold int, cooldown time.Duration) *cooldownBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return &cooldownBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a publish may proceed.
func (b *cooldownBreaker) Allow() bool {
	b.mu.RLock()
	if !b.open {
		b.mu.RUnlock()
		return true
	}
	expired := time.Now().After(b.openUntil)
	b.mu.RUnlock()

	if !expired {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// Re-check under the write lock; another goroutine may have closed it.
	if b.open && time.Now().After(b.openUntil) {
		b.open = false
		b.failures = 0
	}
	return !b.open
}

func (b *cooldownBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

func (b *cooldownBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openUntil = time.Now().Add(b.cooldown)
	}
}

func (b *cooldownBreaker) IsOpen() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.open
}
