// Package inflight implements a bounded in-flight handle set: a
// per-track bound on concurrently open object streams, with
// drop-on-overflow and a single join point for graceful shutdown.
package inflight

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// Set bounds the number of concurrently running handles to max. TryAdd
// is the only way in; a handle already running is tracked until its
// function returns, then released automatically.
type Set struct {
	mu  sync.Mutex
	g   *errgroup.Group
	max uint32
	n   uint32
}

// NewSet returns a Set that admits at most max concurrent handles.
func NewSet(max uint32) *Set {
	return &Set{g: new(errgroup.Group), max: max}
}

// TryAdd runs fn in its own goroutine if the set is below max, returning
// true. If the set is already at max, fn is not run and TryAdd returns
// false — the caller's chunk should be reported dropped.
func (s *Set) TryAdd(fn func() error) bool {
	s.mu.Lock()
	if s.n >= s.max {
		s.mu.Unlock()
		return false
	}
	s.n++
	s.mu.Unlock()

	s.g.Go(func() error {
		defer s.release()
		return fn()
	})
	return true
}

func (s *Set) release() {
	s.mu.Lock()
	s.n--
	s.mu.Unlock()
}

// Len reports the current number of running handles.
func (s *Set) Len() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Wait blocks until every handle admitted so far has settled. Errors
// returned by individual handles are expected during shutdown and are
// swallowed; callers that need per-handle errors should log them inside
// fn before returning.
func (s *Set) Wait() {
	_ = s.g.Wait()
}
