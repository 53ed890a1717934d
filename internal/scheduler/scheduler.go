// Package scheduler abstracts delayed callback execution so deadline
// behavior can be driven deterministically in tests.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after d. Wakes are never cancelled; callbacks are
// expected to re-check their guards and no-op when the world moved on.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

// Real delegates to time.AfterFunc.
type Real struct{}

func NewReal() *Real {
	return &Real{}
}

func (Real) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

type pending struct {
	seq int
	due time.Duration
	fn  func()
}

// Manual queues callbacks and fires them only when told to, for tests.
type Manual struct {
	mu      sync.Mutex
	seq     int
	elapsed time.Duration
	queue   []pending
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.queue = append(m.queue, pending{seq: m.seq, due: m.elapsed + d, fn: fn})
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Advance moves the virtual clock forward and runs every callback that
// came due, in deadline order. Callbacks run without the lock held so
// they may schedule further wakes.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.elapsed += d
	now := m.elapsed
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.Slice(m.queue, func(i, j int) bool {
			if m.queue[i].due != m.queue[j].due {
				return m.queue[i].due < m.queue[j].due
			}
			return m.queue[i].seq < m.queue[j].seq
		})
		var next *pending
		if len(m.queue) > 0 && m.queue[0].due <= now {
			p := m.queue[0]
			m.queue = m.queue[1:]
			next = &p
		}
		m.mu.Unlock()
		if next == nil {
			return
		}
		next.fn()
	}
}
