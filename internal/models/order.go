package models

import (
	"time"
)

// Source tells the caller where a response's data came from
type Source string

const (
	SourceRealAPI      Source = "real_api"
	SourceMock         Source = "mock"
	SourceFallbackMock Source = "fallback_mock"
)

// StoreRef is the normalized view of a pizza store
type StoreRef struct {
	StoreID                string  `json:"store_id"`
	Phone                  string  `json:"phone"`
	Address                string  `json:"address"`
	IsDeliveryStore        bool    `json:"is_delivery_store"`
	MinDeliveryOrderAmount float64 `json:"min_delivery_order_amount"`
	DeliveryMinutes        string  `json:"delivery_minutes"`
	PickupMinutes          string  `json:"pickup_minutes"`
	Source                 Source  `json:"source"`
}

// MenuItem is a single orderable product
type MenuItem struct {
	Category    string `json:"category"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// CustomerAddress is a delivery address
type CustomerAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Region string `json:"region"`
	Zip    string `json:"zip"`
}

// CustomerInfo holds who the order is for
type CustomerInfo struct {
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Address   CustomerAddress `json:"address"`
}

// LineItem is one add_to_order call. Repeated adds of the same code are kept
// as separate entries.
type LineItem struct {
	Code     string                 `json:"code"`
	Quantity int                    `json:"quantity"`
	Options  map[string]interface{} `json:"options"`
	AddedAt  time.Time              `json:"added_at"`
}

// StoreResult is the find_dominos_store payload
type StoreResult struct {
	StoreRef
	Status   string `json:"status"`
	APIError string `json:"api_error,omitempty"`
}

// MenuSearchResult is the search_menu payload
type MenuSearchResult struct {
	Query    string     `json:"query"`
	Items    []MenuItem `json:"items"`
	Count    int        `json:"count"`
	Message  string     `json:"message,omitempty"`
	Source   Source     `json:"source"`
	APIError string     `json:"api_error,omitempty"`
}

// MenuCategoriesResult is the get_store_menu payload
type MenuCategoriesResult struct {
	StoreID    string   `json:"store_id,omitempty"`
	Categories []string `json:"categories"`
	Source     Source   `json:"source"`
	APIError   string   `json:"api_error,omitempty"`
}

// AddItemResult is the add_to_order payload
type AddItemResult struct {
	Message   string   `json:"message"`
	Item      LineItem `json:"item"`
	ItemCount int      `json:"item_count"`
	Source    Source   `json:"source"`
	APIError  string   `json:"api_error,omitempty"`
}

// OrderView is the view_order payload
type OrderView struct {
	Items         []LineItem  `json:"items"`
	ItemCount     int         `json:"item_count"`
	Total         string      `json:"total"`
	UnpricedItems []string    `json:"unpriced_items,omitempty"`
	StoreID       string      `json:"store_id,omitempty"`
	CustomerSet   bool        `json:"customer_set"`
	Coupons       []string    `json:"coupons"`
	OrderData     interface{} `json:"order_data,omitempty"`
	Message       string      `json:"message,omitempty"`
	Source        Source      `json:"source"`
}

// OrderTotal is the calculate_order_total payload
type OrderTotal struct {
	Subtotal              string             `json:"subtotal"`
	Tax                   string             `json:"tax"`
	DeliveryFee           string             `json:"delivery_fee"`
	Total                 string             `json:"total"`
	Amounts               map[string]float64 `json:"amounts,omitempty"`
	Estimate              bool               `json:"estimate"`
	ExceedsMaxOrderAmount bool               `json:"exceeds_max_order_amount"`
	Source                Source             `json:"source"`
	APIError              string             `json:"api_error,omitempty"`
}

// CustomerResult is the set_customer_info payload
type CustomerResult struct {
	Message  string       `json:"message"`
	Customer CustomerInfo `json:"customer"`
	Source   Source       `json:"source"`
}

// CouponResult is the apply_coupon payload
type CouponResult struct {
	Message string   `json:"message"`
	Coupons []string `json:"coupons"`
	Source  Source   `json:"source"`
}

// OrderPreview is the prepare_order_preview payload. It never represents a
// placed order.
type OrderPreview struct {
	Message              string       `json:"message"`
	Items                []LineItem   `json:"items"`
	Customer             CustomerInfo `json:"customer"`
	StoreID              string       `json:"store_id,omitempty"`
	Totals               OrderTotal   `json:"totals"`
	Coupons              []string     `json:"coupons"`
	PlacementEnabled     bool         `json:"placement_enabled"`
	RequiresConfirmation bool         `json:"requires_confirmation"`
	Warning              string       `json:"warning"`
	Source               Source       `json:"source"`
}

// ToolError is the in-band payload returned when a tool cannot run for a
// domain reason the caller can fix.
type ToolError struct {
	Error  string `json:"error"`
	Source Source `json:"source"`
}
