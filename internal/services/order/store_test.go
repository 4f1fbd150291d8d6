package order

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpizza/internal/logger"
	"mcpizza/internal/models"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := LoadSession(ctx, store, "abc")
	require.NoError(t, err)
	assert.Empty(t, sess.Items)

	sess.Items = append(sess.Items, models.LineItem{Code: "S_PIZZA", Quantity: 1})
	require.NoError(t, store.Put(ctx, sess))

	first, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	first.Items = append(first.Items, models.LineItem{Code: "HOT_WINGS", Quantity: 1})

	second, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(mockConfig(), nil, nil, logger.Discard())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", i)
			sess, err := LoadSession(ctx, store, id)
			if !assert.NoError(t, err) {
				return
			}
			for j := 0; j <= i%3; j++ {
				_, err := svc.AddToOrder(ctx, sess, "S_PIZZA", 1, nil)
				assert.NoError(t, err)
			}
			assert.NoError(t, store.Put(ctx, sess))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, store.Len())
	for i := 0; i < 20; i++ {
		sess, err := store.Get(ctx, fmt.Sprintf("session-%d", i))
		require.NoError(t, err)
		assert.Len(t, sess.Items, i%3+1)
	}
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := NewSession("same")
	a.Coupons = []string{"A"}
	b := NewSession("same")
	b.Coupons = []string{"B"}

	require.NoError(t, store.Put(ctx, a))
	require.NoError(t, store.Put(ctx, b))

	got, err := store.Get(ctx, "same")
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, got.Coupons)
}
