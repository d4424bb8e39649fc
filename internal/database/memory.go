package database

import (
	"context"
	"slices"
	"sync"
)

// MemMessageStore keeps messages in process memory. Insertion order is the
// tie breaker for equal timestamps.
type MemMessageStore struct {
	mu       sync.RWMutex
	messages []Message
}

func NewMemMessageStore() *MemMessageStore {
	return &MemMessageStore{}
}

var _ MessageStore = (*MemMessageStore)(nil)

func (s *MemMessageStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemMessageStore) Close() error {
	return nil
}

func (s *MemMessageStore) Insert(ctx context.Context, msg Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	id, err := newMessageId()
	if err != nil {
		return Message{}, err
	}

	msg.Id = id
	msg.IsRead = false

	s.mu.Lock()
	defer s.mu.Unlock()

	msg.CreatedAt = now()
	if n := len(s.messages); n > 0 && msg.CreatedAt.Before(s.messages[n-1].CreatedAt) {
		// keep created_at monotonic so insertion order and time order agree
		msg.CreatedAt = s.messages[n-1].CreatedAt
	}
	s.messages = append(s.messages, msg)

	return msg, nil
}

func (s *MemMessageStore) Find(ctx context.Context, filter MessageFilter) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Message, 0)
	for _, m := range s.messages {
		if filter.Matches(m) {
			res = append(res, m)
		}
	}

	slices.SortStableFunc(res, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return res, nil
}

func (s *MemMessageStore) UpdateMany(ctx context.Context, filter MessageFilter, patch MessagePatch) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !patch.MarkRead {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.messages {
		if filter.Matches(s.messages[i]) && !s.messages[i].IsRead {
			s.messages[i].IsRead = true
			n++
		}
	}

	return n, nil
}

func (s *MemMessageStore) Count(ctx context.Context, filter MessageFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, m := range s.messages {
		if filter.Matches(m) {
			n++
		}
	}

	return n, nil
}
