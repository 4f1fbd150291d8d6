package dominos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"

	"mcpizza/internal/logger"
)

const (
	DefaultBaseURL = "https://order.dominos.com"

	userAgent = "Mozilla/5.0 (compatible; mcpizza/1.0)"
	referer   = "https://order.dominos.com/en/pages/order/"

	maxResponseBytes = 8 << 20
)

var (
	// ErrNoStoreNearby is returned when the locator finds no open delivery store.
	ErrNoStoreNearby = errors.New("no stores found near that address")
)

// APIError is a non-2xx answer from the ordering API
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ordering API %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// MenuCache stores raw menu documents keyed by store id.
type MenuCache interface {
	GetMenu(ctx context.Context, storeID string) ([]byte, bool, error)
	SetMenu(ctx context.Context, storeID string, raw []byte) error
}

// Client talks to the Domino's "power" REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	newBackOff func() backoff.BackOff
	cache      MenuCache
	logger     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBackOff sets the retry schedule factory.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = f
	}
}

// WithMenuCache puts a cache in front of the menu endpoint.
func WithMenuCache(cache MenuCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates an ordering API client. retries is the number of extra
// attempts after the first failure.
func NewClient(baseURL string, timeout time.Duration, retries int, log *logger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    retries,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindClosestStore returns the first online delivery store near addr,
// including its profile.
func (c *Client) FindClosestStore(ctx context.Context, addr Address) (*Store, error) {
	line1, line2 := addr.LocatorLines()
	query := url.Values{}
	query.Set("s", line1)
	query.Set("c", line2)
	query.Set("type", "Delivery")

	body, err := c.get(ctx, "/power/store-locator", query)
	if err != nil {
		return nil, fmt.Errorf("locate store: %w", err)
	}

	var storeID string
	gjson.GetBytes(body, "Stores").ForEach(func(_, store gjson.Result) bool {
		if !store.Get("IsOnlineNow").Bool() || !store.Get("IsDeliveryStore").Bool() {
			return true
		}
		if open := store.Get("ServiceIsOpen.Delivery"); open.Exists() && !open.Bool() {
			return true
		}
		storeID = store.Get("StoreID").String()
		return false
	})
	if storeID == "" {
		return nil, ErrNoStoreNearby
	}

	return c.StoreProfile(ctx, storeID)
}

// StoreProfile fetches the details of one store.
func (c *Client) StoreProfile(ctx context.Context, storeID string) (*Store, error) {
	body, err := c.get(ctx, "/power/store/"+url.PathEscape(storeID)+"/profile", nil)
	if err != nil {
		return nil, fmt.Errorf("store profile %s: %w", storeID, err)
	}

	var store Store
	if err := json.Unmarshal(body, &store); err != nil {
		return nil, fmt.Errorf("decode store profile: %w", err)
	}
	if store.ID == "" {
		store.ID = storeID
	}
	return &store, nil
}

// Menu fetches a store's menu, consulting the cache first when one is set.
func (c *Client) Menu(ctx context.Context, storeID string) (*Menu, error) {
	if c.cache != nil {
		raw, ok, err := c.cache.GetMenu(ctx, storeID)
		if err != nil {
			c.logger.Warn("menu_cache_failed", "Menu cache read failed", "", map[string]interface{}{
				"store_id": storeID,
				"error":    err.Error(),
			})
		} else if ok {
			return NewMenu(raw)
		}
	}

	query := url.Values{}
	query.Set("lang", "en")
	query.Set("structured", "true")
	raw, err := c.get(ctx, "/power/store/"+url.PathEscape(storeID)+"/menu", query)
	if err != nil {
		return nil, fmt.Errorf("store menu %s: %w", storeID, err)
	}

	menu, err := NewMenu(raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetMenu(ctx, storeID, menu.Raw()); err != nil {
			c.logger.Warn("menu_cache_failed", "Menu cache write failed", "", map[string]interface{}{
				"store_id": storeID,
				"error":    err.Error(),
			})
		}
	}
	return menu, nil
}

// PriceOrder asks the API to price the order and returns its amounts.
func (c *Client) PriceOrder(ctx context.Context, order *Order) (Amounts, error) {
	payload, err := json.Marshal(map[string]*Order{"Order": order})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}

	body, err := c.post(ctx, "/power/price-order", payload)
	if err != nil {
		return nil, fmt.Errorf("price order: %w", err)
	}

	if status := gjson.GetBytes(body, "Status"); status.Exists() && status.Int() < 0 {
		codes := gjson.GetBytes(body, "StatusItems.#.Code").Array()
		reasons := make([]string, 0, len(codes))
		for _, code := range codes {
			reasons = append(reasons, code.String())
		}
		return nil, fmt.Errorf("price order rejected: %s", strings.Join(reasons, ", "))
	}

	amounts := Amounts{}
	gjson.GetBytes(body, "Order.Amounts").ForEach(func(key, value gjson.Result) bool {
		amounts[key.String()] = value.Float()
		return true
	})
	return amounts, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, path, nil)
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+path, path, payload)
}

// do performs one logical call, retrying transport errors and 5xx answers.
func (c *Client) do(ctx context.Context, method, target, path string, payload []byte) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Referer", referer)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(data), 200)}
			if resp.StatusCode < 500 {
				return nil, backoff.Permanent(apiErr)
			}
			return nil, apiErr
		}
		return data, nil
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.retries+1)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.Warn("api_retry", "Retrying ordering API call", "", map[string]interface{}{
				"path":    path,
				"attempt": attempt,
				"wait_ms": wait.Milliseconds(),
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
