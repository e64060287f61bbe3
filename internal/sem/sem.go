// Package sem implements the counting semaphore ports use to track buffer
// availability.
//
// The semaphore does not own a lock. It shares the lock of the structure
// it guards, so that taking a credit and acting on it is a single critical
// section. Every method must be called with that lock held.
package sem

import "sync"

// Semaphore is a counting semaphore bound to an external lock.
type Semaphore struct {
	cond  *sync.Cond
	count int
}

// New returns a semaphore with zero credits guarded by l.
func New(l sync.Locker) *Semaphore {
	return &Semaphore{cond: sync.NewCond(l)}
}

// Up adds one credit and wakes a waiter.
func (s *Semaphore) Up() {
	s.count++
	s.cond.Signal()
}

// Down takes one credit, blocking until one is available. Waiting stops
// without taking a credit as soon as cancelled reports true, in which case
// false is returned. cancelled is evaluated with the lock held, before the
// first wait and after every wake up.
func (s *Semaphore) Down(cancelled func() bool) bool {
	for {
		if cancelled != nil && cancelled() {
			return false
		}
		if s.count > 0 {
			s.count--
			return true
		}
		s.cond.Wait()
	}
}

// TryDown takes one credit if one is available.
func (s *Semaphore) TryDown() bool {
	if s.count == 0 {
		return false
	}
	s.count--
	return true
}

// Value returns the number of credits.
func (s *Semaphore) Value() int {
	return s.count
}

// Broadcast wakes every waiter so it re-evaluates its cancellation.
func (s *Semaphore) Broadcast() {
	s.cond.Broadcast()
}
