package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const maxTxRetries = 16

// RedisStore keeps each cart as a JSON document under cart:<userID>.
// Updates run in WATCH/MULTI transactions and are retried when another
// writer touched the key first.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.read(ctx, s.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, g getter, userID string) (*domain.Cart, error) {
	data, err := g.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return emptyCart(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get failed: %w", domain.ErrStoreUnavailable, err)
	}

	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	c.UserID = userID
	if c.Lines == nil {
		c.Lines = []domain.CartLine{}
	}
	return &c, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, fn UpdateFunc) (*domain.Cart, error) {
	key := cartKey(userID)
	var (
		result *domain.Cart
		fnErr  error
	)

	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, userID)
		if err != nil {
			return err
		}

		lines, err := fn(current.Lines)
		if err != nil {
			fnErr = err
			return err
		}

		next := &domain.Cart{UserID: userID, Lines: lines, UpdatedAt: s.now()}
		if next.Lines == nil {
			next.Lines = []domain.CartLine{}
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(next.Lines) == 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, payload, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return result, nil
		case fnErr != nil:
			return nil, fnErr
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, domain.ErrStoreUnavailable):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: cart update failed: %w", domain.ErrStoreUnavailable, err)
		}
	}
	return nil, fmt.Errorf("%w: cart for %s kept changing", domain.ErrConflict, userID)
}

func (s *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete failed: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}
