// Package gate serializes user-triggered operations. A guard admits one
// operation at a time and drops, rather than queues, triggers that arrive
// while one is in flight or too soon after the previous start.
package gate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrBusy means an operation behind the same guard is still in flight.
	ErrBusy = errors.New("operation already in flight")
	// ErrThrottled means the minimum interval since the last accepted start
	// has not elapsed yet.
	ErrThrottled = errors.New("operation triggered too soon")
)

// Guard is a non-queueing lock. Acquire either admits the caller or fails
// immediately; there is no waiting.
type Guard struct {
	name        string
	minInterval time.Duration

	mu        sync.Mutex
	busy      bool
	lastStart time.Time
	now       func() time.Time
}

// NewGuard names a guard for its log lines. minInterval of zero disables
// throttling, leaving only the single-flight rule.
func NewGuard(name string, minInterval time.Duration) *Guard {
	return &Guard{
		name:        name,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// Acquire admits at most one caller until Release. Dropped triggers return
// ErrBusy or ErrThrottled and have no effect.
func (g *Guard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		log.Debugf("gate %s: dropped trigger, previous operation still running", g.name)
		return fmt.Errorf("gate %s: %w", g.name, ErrBusy)
	}

	now := g.now()
	if g.minInterval > 0 && !g.lastStart.IsZero() && now.Sub(g.lastStart) < g.minInterval {
		log.Debugf("gate %s: dropped trigger, within %s of previous start", g.name, g.minInterval)
		return fmt.Errorf("gate %s: %w", g.name, ErrThrottled)
	}

	g.busy = true
	g.lastStart = now
	return nil
}

// Release reopens the guard. Safe to call once per successful Acquire.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false
}

// Do runs fn under the guard when admitted, releasing afterwards.
func (g *Guard) Do(fn func() error) error {
	if err := g.Acquire(); err != nil {
		return err
	}
	defer g.Release()
	return fn()
}

// Busy reports whether an operation currently holds the guard.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
