package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps notifications in process memory. Used by tests and by
// deployments that run without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	seq    int
	items  map[string]Notification
	order  map[string]int
	Emails map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make(map[string]Notification),
		order:  make(map[string]int),
		Emails: make(map[string]string),
	}
}

func (s *MemoryStore) CreateNotification(ctx context.Context, userID, kind, title, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := uuid.NewString()
	s.items[id] = Notification{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	s.order[id] = s.seq
	return nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, n := range s.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.order[out[i].ID] > s.order[out[j].ID]
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[notificationID]
	if !ok || n.UserID != userID {
		return nil
	}
	n.IsRead = true
	s.items[notificationID] = n
	return nil
}

func (s *MemoryStore) MarkAllRead(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			s.items[id] = n
		}
	}
	return nil
}

func (s *MemoryStore) UserEmail(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Emails[userID], nil
}
