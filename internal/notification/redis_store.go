package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"stockroom/internal/domain"

	"github.com/redis/go-redis/v9"
)

const maxWatchRetries = 5

// RedisStore keeps the notification list in a single Redis list, newest at the head
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store on key
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Push(ctx context.Context, n domain.Notification, capacity int) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, raw)
		if capacity > 0 {
			pipe.LTrim(ctx, s.key, 0, int64(capacity-1))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]domain.Notification, error) {
	raws, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return decodeAll(raws)
}

func (s *RedisStore) MarkRead(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *redis.Tx, raws []string) error {
		for i, raw := range raws {
			n, err := decode(raw)
			if err != nil {
				return err
			}
			if n.ID != id {
				continue
			}
			if n.Read {
				return nil
			}
			n.Read = true
			updated, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("failed to encode notification: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LSet(ctx, s.key, int64(i), updated)
				return nil
			})
			return err
		}
		return ErrNotificationNotFound
	})
}

func (s *RedisStore) MarkAllRead(ctx context.Context) error {
	return s.update(ctx, func(tx *redis.Tx, raws []string) error {
		if len(raws) == 0 {
			return nil
		}
		values := make([]interface{}, 0, len(raws))
		for _, raw := range raws {
			n, err := decode(raw)
			if err != nil {
				return err
			}
			n.Read = true
			updated, err := json.Marshal(n)
			if err != nil {
				return fmt.Errorf("failed to encode notification: %w", err)
			}
			values = append(values, updated)
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, s.key)
			pipe.RPush(ctx, s.key, values...)
			return nil
		})
		return err
	})
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *redis.Tx, raws []string) error {
		for _, raw := range raws {
			n, err := decode(raw)
			if err != nil {
				return err
			}
			if n.ID != id {
				continue
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.LRem(ctx, s.key, 1, raw)
				return nil
			})
			return err
		}
		return ErrNotificationNotFound
	})
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

// update runs fn under WATCH on the list and retries when another writer
// touched it between the read and the write
func (s *RedisStore) update(ctx context.Context, fn func(tx *redis.Tx, raws []string) error) error {
	txf := func(tx *redis.Tx) error {
		raws, err := tx.LRange(ctx, s.key, 0, -1).Result()
		if err != nil {
			return err
		}
		return fn(tx, raws)
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !errors.Is(err, ErrNotificationNotFound) {
			return fmt.Errorf("failed to update notifications: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to update notifications: %w", redis.TxFailedErr)
}

func decode(raw string) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, fmt.Errorf("failed to decode notification: %w", err)
	}
	return n, nil
}

func decodeAll(raws []string) ([]domain.Notification, error) {
	out := make([]domain.Notification, 0, len(raws))
	for _, raw := range raws {
		n, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
