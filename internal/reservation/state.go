package reservation

import (
	"context"
	"sync"

	"github.com/colonyops/bflex/internal/core/logging"
)

// state is the loading, value and last error of one loaded object.
type state[T any] struct {
	mu      sync.Mutex
	value   T
	ok      bool
	loading bool
	err     error
}

func (s *state[T]) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.mu.Unlock()
}

func (s *state[T]) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.err = err
	s.mu.Unlock()
}

func (s *state[T]) idle() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// set stores v. extra runs under the lock.
func (s *state[T]) set(v T, extra func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value, s.ok, s.loading = v, true, false
	if extra != nil {
		extra()
	}
}

func (s *state[T]) clear(extra func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value, s.ok, s.err = zero, false, nil
	if extra != nil {
		extra()
	}
}

func (s *state[T]) get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ok
}

func (s *state[T]) isLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *state[T]) lastErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func withRequestID(ctx context.Context, id string) context.Context {
	if logging.GetRequestID(ctx) != "" {
		return ctx
	}
	return logging.WithRequestID(ctx, id)
}
