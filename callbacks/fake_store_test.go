package callbacks_test

import (
	"context"
	"sync"

	"github.com/effective-security/agenttools/store"
)

type fakeStore struct {
	mu    sync.Mutex
	added []store.Invocation
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (s *fakeStore) Add(ctx context.Context, inv *store.Invocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = append(s.added, *inv)
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]store.Invocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Invocation(nil), s.added...), nil
}

func (s *fakeStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.added = nil
	return nil
}
