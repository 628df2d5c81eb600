// Package clock supplies the time source used by the billing engine.
//
// Every billing decision reads the current instant through a Clock so that
// tests can pin dates and advance them deterministically.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant.
type Clock interface {
	Now() time.Time
}

// System is the wall clock, always in UTC.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time { return time.Now().UTC() }

// Mock is a manually driven Clock. The zero value reports the zero time.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock returns a Mock pinned at t.
func NewMock(t time.Time) *Mock {
	return &Mock{now: t.UTC()}
}

// Now implements Clock.
func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t.UTC()
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// AdvanceDays moves the clock forward by n whole days.
func (m *Mock) AdvanceDays(n int) {
	m.Advance(time.Duration(n) * 24 * time.Hour)
}
