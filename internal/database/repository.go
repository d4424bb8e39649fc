package database

import "context"

type MessageStore interface {
	Ping(ctx context.Context) error
	Insert(ctx context.Context, msg Message) (Message, error)
	Find(ctx context.Context, filter MessageFilter) ([]Message, error)
	UpdateMany(ctx context.Context, filter MessageFilter, patch MessagePatch) (int64, error)
	Count(ctx context.Context, filter MessageFilter) (int64, error)
	Close() error
}
