package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMessageStore struct {
	mock.Mock
}

func (m *MockMessageStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockMessageStore) Insert(ctx context.Context, msg Message) (Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockMessageStore) Find(ctx context.Context, filter MessageFilter) ([]Message, error) {
	args := m.Called(ctx, filter)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessageStore) UpdateMany(ctx context.Context, filter MessageFilter, patch MessagePatch) (int64, error) {
	args := m.Called(ctx, filter, patch)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMessageStore) Count(ctx context.Context, filter MessageFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}
func (m *MockMessageStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
