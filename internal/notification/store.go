package notification

import (
	"context"
	"errors"
	"sync"

	"stockroom/internal/domain"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// Store persists the notification list, newest first
type Store interface {
	// Push prepends n and drops everything past capacity
	Push(ctx context.Context, n domain.Notification, capacity int) error
	List(ctx context.Context) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps notifications in process memory
type MemoryStore struct {
	mu    sync.Mutex
	items []domain.Notification
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Push(ctx context.Context, n domain.Notification, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.Notification, 0, len(s.items)+1)
	items = append(items, n)
	items = append(items, s.items...)
	if capacity > 0 && len(items) > capacity {
		items = items[:capacity]
	}
	s.items = items
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Notification{}, s.items...), nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (s *MemoryStore) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].Read = true
	}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return nil
}
