package dominos

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpizza/internal/logger"
)

const testMenu = `{
  "Products": {
    "S_PIZZA": {"Code": "S_PIZZA", "Name": "Hand Tossed Pizza", "Description": "Classic crust", "ProductType": "Pizza", "Variants": ["12SCREEN", "14SCREEN"]},
    "S_BUFC": {"Code": "S_BUFC", "Name": "Buffalo Chicken Pizza", "Description": "Spicy buffalo sauce", "ProductType": "Pizza", "Variants": ["14SCBUFC"]},
    "S_HOTWINGS": {"Code": "S_HOTWINGS", "Name": "Hot Wings", "Description": "Buffalo style", "ProductType": "Wings", "Variants": ["W08PHOTW"]}
  },
  "Variants": {
    "12SCREEN": {"Code": "12SCREEN", "ProductCode": "S_PIZZA", "Price": "13.99"},
    "14SCREEN": {"Code": "14SCREEN", "ProductCode": "S_PIZZA", "Price": "15.99"},
    "14SCBUFC": {"Code": "14SCBUFC", "ProductCode": "S_BUFC", "Price": "19.99"},
    "W08PHOTW": {"Code": "W08PHOTW", "ProductCode": "S_HOTWINGS", "Price": "9.49"}
  },
  "Categorization": {"Food": {"Categories": [{"Name": "Pizza"}, {"Name": "Wings"}]}}
}`

func newTestClient(url string, retries int, opts ...Option) *Client {
	opts = append([]Option{WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	})}, opts...)
	return NewClient(url, 2*time.Second, retries, logger.Discard(), opts...)
}

func TestFindClosestStore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/power/store-locator", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1234 Main St", r.URL.Query().Get("s"))
		assert.Equal(t, "Carmichael, CA 95608", r.URL.Query().Get("c"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		io.WriteString(w, `{"Stores": [
			{"StoreID": "1111", "IsOnlineNow": false, "IsDeliveryStore": true},
			{"StoreID": "2222", "IsOnlineNow": true, "IsDeliveryStore": false},
			{"StoreID": "4521", "IsOnlineNow": true, "IsDeliveryStore": true}
		]}`)
	})
	mux.HandleFunc("/power/store/4521/profile", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"StoreID": "4521", "Phone": "916-555-0199",
			"AddressDescription": "1234 Main St\nCarmichael, CA 95608",
			"IsDeliveryStore": true, "IsOnlineNow": true, "MinimumDeliveryOrderAmount": 10,
			"ServiceEstimatedWaitMinutes": {"Delivery": {"Min": 20, "Max": 30}, "Carryout": {"Min": 10, "Max": 20}}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(srv.URL, 0)
	store, err := client.FindClosestStore(context.Background(), ParseAddress("1234 Main St, Carmichael, CA 95608"))
	require.NoError(t, err)

	assert.Equal(t, "4521", store.ID)
	assert.Equal(t, "916-555-0199", store.Phone)
	assert.Equal(t, 10.0, store.MinDeliveryOrderAmount)
	assert.Equal(t, WaitRange{Min: 20, Max: 30}, store.WaitMinutes.Delivery)
}

func TestFindClosestStoreNoneOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Stores": [{"StoreID": "1", "IsOnlineNow": false, "IsDeliveryStore": true}]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).FindClosestStore(context.Background(), ParseAddress("95608"))
	assert.ErrorIs(t, err, ErrNoStoreNearby)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, testMenu)
	}))
	defer srv.Close()

	menu, err := newTestClient(srv.URL, 3).Menu(context.Background(), "4521")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.True(t, menu.HasItem("S_PIZZA"))
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).Menu(context.Background(), "4521")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestClientWithHTTPClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/power/store/4521/menu", r.URL.Path)
		io.WriteString(w, testMenu)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).Menu(context.Background(), "4521")
	require.Error(t, err)

	menu, err := newTestClient(srv.URL, 0, WithHTTPClient(srv.Client())).Menu(context.Background(), "4521")
	require.NoError(t, err)
	price, ok := menu.Price("W08PHOTW")
	assert.True(t, ok)
	assert.Equal(t, "9.49", price)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).Menu(context.Background(), "0000")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMenuSearch(t *testing.T) {
	menu, err := NewMenu([]byte(testMenu))
	require.NoError(t, err)

	results := menu.Search("BUFFALO")
	require.Len(t, results, 2)
	assert.Equal(t, "S_BUFC", results[0].Code)
	assert.Equal(t, "19.99", results[0].Price)
	assert.Equal(t, "S_HOTWINGS", results[1].Code)
	assert.Equal(t, "Wings", results[1].Category)

	assert.Empty(t, menu.Search("sushi"))
	assert.Equal(t, []string{"Pizza", "Wings"}, menu.Categories())

	price, ok := menu.Price("14SCREEN")
	assert.True(t, ok)
	assert.Equal(t, "15.99", price)

	price, ok = menu.Price("S_PIZZA")
	assert.True(t, ok)
	assert.Equal(t, "13.99", price)

	assert.False(t, menu.HasItem("NOPE"))
}

func TestNewMenuRejectsGarbage(t *testing.T) {
	_, err := NewMenu([]byte("<html>"))
	assert.ErrorIs(t, err, ErrInvalidMenu)
}

type memoryMenuCache struct {
	mu    sync.Mutex
	menus map[string][]byte
}

func (c *memoryMenuCache) GetMenu(_ context.Context, storeID string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.menus[storeID]
	return raw, ok, nil
}

func (c *memoryMenuCache) SetMenu(_ context.Context, storeID string, raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menus[storeID] = raw
	return nil
}

func TestMenuUsesCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		io.WriteString(w, testMenu)
	}))
	defer srv.Close()

	cache := &memoryMenuCache{menus: map[string][]byte{}}
	client := newTestClient(srv.URL, 0, WithMenuCache(cache))

	for i := 0; i < 3; i++ {
		menu, err := client.Menu(context.Background(), "4521")
		require.NoError(t, err)
		assert.True(t, menu.HasItem("W08PHOTW"))
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestPriceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/power/price-order", r.URL.Path)

		var body struct {
			Order Order `json:"Order"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "4521", body.Order.StoreID)
		if assert.Len(t, body.Order.Products, 2) {
			assert.Equal(t, 2, body.Order.Products[1].ID)
		}

		io.WriteString(w, `{"Status": 1, "Order": {"Amounts": {"Menu": 31.98, "Tax": 2.64, "Customer": 34.62}}}`)
	}))
	defer srv.Close()

	order := NewOrder("4521")
	order.AddProduct("14SCREEN", 1, nil)
	order.AddProduct("14SCREEN", 1, map[string]interface{}{"P": map[string]string{"1/1": "1"}})

	amounts, err := newTestClient(srv.URL, 0).PriceOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 34.62, amounts["Customer"])
	assert.Equal(t, 2.64, amounts["Tax"])
}

func TestPriceOrderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"Status": -1, "StatusItems": [{"Code": "StoreClosed"}]}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).PriceOrder(context.Background(), NewOrder("4521"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "StoreClosed")
}
