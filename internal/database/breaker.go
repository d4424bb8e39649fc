package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// BreakerStore short-circuits calls to a failing MessageStore. While the
// breaker is open every call fails fast with gobreaker.ErrOpenState.
type BreakerStore struct {
	next MessageStore
	cb   *gobreaker.CircuitBreaker[any]
}

func NewBreakerStore(next MessageStore, cfg BreakerConfig, logger zerolog.Logger) *BreakerStore {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("message store circuit breaker changed state")
		},
	}

	return &BreakerStore{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

var _ MessageStore = (*BreakerStore)(nil)

func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BreakerStore) Close() error {
	return b.next.Close()
}

func (b *BreakerStore) Insert(ctx context.Context, msg Message) (Message, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Insert(ctx, msg)
	})
	if err != nil {
		return Message{}, err
	}

	return res.(Message), nil
}

func (b *BreakerStore) Find(ctx context.Context, filter MessageFilter) ([]Message, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Find(ctx, filter)
	})
	if err != nil {
		return nil, err
	}

	return res.([]Message), nil
}

func (b *BreakerStore) UpdateMany(ctx context.Context, filter MessageFilter, patch MessagePatch) (int64, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.UpdateMany(ctx, filter, patch)
	})
	if err != nil {
		return 0, err
	}

	return res.(int64), nil
}

func (b *BreakerStore) Count(ctx context.Context, filter MessageFilter) (int64, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Count(ctx, filter)
	})
	if err != nil {
		return 0, err
	}

	return res.(int64), nil
}
