package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpizza/internal/models"
	"mcpizza/internal/services/order"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client, err := Connect(context.Background(), s.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return s, client
}

func TestMenuCache(t *testing.T) {
	s, client := setupMiniredis(t)
	cache := NewMenuCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.GetMenu(ctx, "4521")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.SetMenu(ctx, "4521", []byte(`{"Products":{}}`)))

	raw, ok, err := cache.GetMenu(ctx, "4521")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"Products":{}}`, string(raw))

	s.FastForward(2 * time.Minute)
	_, ok, err = cache.GetMenu(ctx, "4521")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore(t *testing.T) {
	s, client := setupMiniredis(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrSessionNotFound)

	sess := order.NewSession("abc")
	sess.Items = append(sess.Items, models.LineItem{Code: "S_PIZZA", Quantity: 2, Options: map[string]interface{}{}})
	require.NoError(t, store.Put(ctx, sess))

	loaded, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "S_PIZZA", loaded.Items[0].Code)
	assert.Equal(t, 2, loaded.Items[0].Quantity)

	assert.Equal(t, time.Hour, s.TTL(sessionKeyPrefix+"abc"))

	s.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "abc")
	assert.ErrorIs(t, err, order.ErrSessionNotFound)
}

func TestConnectFailure(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	addr := s.Addr()
	s.Close()

	_, err = Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
