package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewRedisStore(client, time.Hour)

	cleanup := func() {
		client.Close()
		mr.Close()
	}
	return store, mr, cleanup
}

func addOne(ref string) UpdateFunc {
	return func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.AddLine(lines, ref, 1)
	}
}

func TestRedisStore_GetMissing(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	c, err := store.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Empty(t, c.Lines)
}

func TestRedisStore_UpdatePersistsWithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	c, err := store.Update(ctx, "u1", addOne("P1"))
	require.NoError(t, err)
	assert.Equal(t, []domain.CartLine{{ProductRef: "P1", Quantity: 1}}, c.Lines)

	assert.True(t, mr.Exists(cartKey("u1")))
	assert.Equal(t, time.Hour, mr.TTL(cartKey("u1")))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, c.Lines, got.Lines)
}

func TestRedisStore_EmptyCartDeletesKey(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Update(ctx, "u1", addOne("P1"))
	require.NoError(t, err)

	_, err = store.Update(ctx, "u1", func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.RemoveLine(lines, "P1"), nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cartKey("u1")))
}

func TestRedisStore_UpdateErrorLeavesCart(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.Update(ctx, "u1", addOne("P1"))
	require.NoError(t, err)

	_, err = store.Update(ctx, "u1", func(lines []domain.CartLine) ([]domain.CartLine, error) {
		return domain.AddLine(lines, "P1", 0)
	})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	c, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Lines[0].Quantity)
}

func TestRedisStore_ConcurrentAddsNoLostUpdates(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "u1", addOne("P1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, writers, c.Lines[0].Quantity)
}

func TestRedisStore_Unavailable(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	_, err := store.Get(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = store.Update(context.Background(), "u1", addOne("P1"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
