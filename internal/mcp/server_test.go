package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpizza/internal/logger"
	"mcpizza/internal/models"
	"mcpizza/internal/services/order"
)

type countingStore struct {
	*order.MemoryStore
	mu     sync.Mutex
	puts   int
	putErr error
}

func (c *countingStore) Put(ctx context.Context, s *order.Session) error {
	c.mu.Lock()
	c.puts++
	err := c.putErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.MemoryStore.Put(ctx, s)
}

type eventLog struct {
	mu     sync.Mutex
	events []*models.OrderEventMessage
}

func (l *eventLog) PublishOrderEvent(_ context.Context, event *models.OrderEventMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) names() []models.OrderEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.OrderEventType
	for _, e := range l.events {
		out = append(out, e.Event)
	}
	return out
}

func newTestServer(store order.SessionStore) *Server {
	return NewServer(newTestRouter(true, nil), store, logger.Discard())
}

func exchange(t *testing.T, s *Server, sessionID, raw string) *rpcReply {
	t.Helper()
	data, err := s.Exchange(context.Background(), sessionID, []byte(raw))
	require.NoError(t, err)
	if data == nil {
		return nil
	}
	var reply rpcReply
	require.NoError(t, json.Unmarshal(data, &reply))
	return &reply
}

func addItem(code string, id int) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":"tools/call","params":{"name":"add_to_order","arguments":{"item_code":%q}}}`, id, code)
}

func TestExchangePersistsMutations(t *testing.T) {
	store := &countingStore{MemoryStore: order.NewMemoryStore()}
	s := newTestServer(store)

	exchange(t, s, "a", addItem("S_PIZZA", 1))
	exchange(t, s, "a", addItem("HOT_WINGS", 2))

	sess, err := store.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, sess.Items, 2)
	assert.Equal(t, "S_PIZZA", sess.Items[0].Code)
	assert.Equal(t, "HOT_WINGS", sess.Items[1].Code)
	assert.Equal(t, 2, store.puts)
}

func TestExchangeSkipsSaveForReads(t *testing.T) {
	store := &countingStore{MemoryStore: order.NewMemoryStore()}
	s := newTestServer(store)

	exchange(t, s, "a", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	exchange(t, s, "a", `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"view_order","arguments":{}}}`)

	assert.Equal(t, 0, store.puts)
	assert.Equal(t, 0, store.Len())
}

func TestExchangeSessionsAreIsolated(t *testing.T) {
	store := order.NewMemoryStore()
	s := newTestServer(store)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n)
			for j := 0; j <= n; j++ {
				_, err := s.Exchange(context.Background(), id, []byte(addItem("S_PIZZA", j)))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		sess, err := store.Get(context.Background(), fmt.Sprintf("session-%d", i))
		require.NoError(t, err)
		assert.Len(t, sess.Items, i+1)
	}
}

func TestExchangeSaveFailure(t *testing.T) {
	store := &countingStore{MemoryStore: order.NewMemoryStore(), putErr: errors.New("disk full")}
	s := newTestServer(store)

	reply := exchange(t, s, "a", addItem("S_PIZZA", 9))
	require.NotNil(t, reply)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeInternalError, reply.Error.Code)
	assert.Contains(t, reply.Error.Message, "disk full")
	assert.JSONEq(t, `9`, string(reply.ID))
}

func TestExchangePublishesOnlySavedChanges(t *testing.T) {
	store := &countingStore{MemoryStore: order.NewMemoryStore(), putErr: errors.New("disk full")}
	events := &eventLog{}
	s := NewServer(newTestRouter(true, events), store, logger.Discard())

	reply := exchange(t, s, "a", addItem("S_PIZZA", 1))
	require.NotNil(t, reply.Error)
	assert.Empty(t, events.names())

	store.mu.Lock()
	store.putErr = nil
	store.mu.Unlock()

	reply = exchange(t, s, "a", addItem("HOT_WINGS", 2))
	require.Nil(t, reply.Error)
	assert.Equal(t, []models.OrderEventType{models.EventItemAdded}, events.names())
	assert.Equal(t, "HOT_WINGS", events.events[0].ItemCode)
	assert.Equal(t, 1, events.events[0].ItemCount)

	exchange(t, s, "a", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"view_order","arguments":{}}}`)
	assert.Len(t, events.names(), 1)
}

func TestExchangeNotificationAndParseError(t *testing.T) {
	s := newTestServer(order.NewMemoryStore())

	assert.Nil(t, exchange(t, s, "a", `{"jsonrpc":"2.0","method":"notifications/initialized"}`))

	reply := exchange(t, s, "a", `not json`)
	require.NotNil(t, reply.Error)
	assert.Equal(t, CodeParseError, reply.Error.Code)
	assert.JSONEq(t, `null`, string(reply.ID))
}
