package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/SudhiHebbar/habit-tracker-sub002/internal/store"
)

// ErrStorageUnavailable is returned by FlakyStorage while failing.
var ErrStorageUnavailable = errors.New("storage unavailable")

// FlakyStorage wraps a store.Memory and fails every call while Failing is
// set, mimicking quota or privacy-mode errors from persistent storage.
type FlakyStorage struct {
	mu      sync.Mutex
	inner   *store.Memory
	failing bool
	calls   int
}

// NewFlakyStorage returns a working storage.
func NewFlakyStorage() *FlakyStorage {
	return &FlakyStorage{inner: store.NewMemory()}
}

// SetFailing switches failure mode on or off.
func (s *FlakyStorage) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// Calls returns the number of calls made, failed or not.
func (s *FlakyStorage) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *FlakyStorage) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failing {
		return ErrStorageUnavailable
	}
	return nil
}

func (s *FlakyStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

func (s *FlakyStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.inner.Set(ctx, key, value)
}

func (s *FlakyStorage) Delete(ctx context.Context, key string) error {
	if err := s.check(); err != nil {
		return err
	}
	return s.inner.Delete(ctx, key)
}

func (s *FlakyStorage) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.inner.Keys(ctx, prefix)
}
