// redis — Slot поверх Redis: один строковый ключ на клиента.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pribylovaa/myoutfood/internal/history"
)

// Slot — blob истории в Redis.
type Slot struct {
	rdb *redis.Client
}

var _ history.Slot = (*Slot)(nil)

// New создаёт клиент Redis из URL (например, redis://:pass@host:6379/0).
func New(ctx context.Context, redisURL string) (*Slot, error) {
	const op = "history/redis/New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse url: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return &Slot{rdb: rdb}, nil
}

func (s *Slot) Load(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, history.ErrSlotEmpty
	}

	return b, err
}

func (s *Slot) Save(ctx context.Context, key string, blob []byte) error {
	return s.rdb.Set(ctx, key, blob, 0).Err()
}

func (s *Slot) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Ping — проверка готовности для /healthz.
func (s *Slot) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Slot) Close() error { return s.rdb.Close() }
