package graphbase

import "sync"

// slot is a single lazily-initialized value visible to one execution
// scope. Scopes are owned by a single goroutine, so the mutex only
// protects against accidental sharing; it is never contended in the
// intended usage.
type slot[T any] struct {
	mu           sync.Mutex
	value        T
	set          bool
	initializing bool
}

// get returns the stored value and whether one has been set.
func (s *slot[T]) get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// put overwrites the stored value.
func (s *slot[T]) put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.set = true
}

// clear removes the stored value.
func (s *slot[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.set = false
}

// getOrInit returns the stored value, invoking factory exactly once to
// produce it if the slot is empty. A factory error leaves the slot
// empty. Reentering getOrInit from inside the factory panics: the slot
// belongs to a single scope, so reentry means the factory called back
// into the code that is waiting for it.
func (s *slot[T]) getOrInit(factory func() (T, error)) (T, error) {
	s.mu.Lock()
	if s.set {
		v := s.value
		s.mu.Unlock()
		return v, nil
	}
	if s.initializing {
		s.mu.Unlock()
		panic("graphbase: reentrant slot initialization")
	}
	s.initializing = true
	s.mu.Unlock()

	v, err := factory()

	s.mu.Lock()
	s.initializing = false
	if err != nil {
		var zero T
		s.mu.Unlock()
		return zero, err
	}
	s.value = v
	s.set = true
	s.mu.Unlock()
	return v, nil
}
