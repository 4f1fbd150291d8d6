package models

import (
	"fmt"
	"time"
)

// OrderEventType names a cart mutation that is broadcast to subscribers
type OrderEventType string

const (
	EventItemAdded     OrderEventType = "item_added"
	EventCustomerSet   OrderEventType = "customer_set"
	EventCouponApplied OrderEventType = "coupon_applied"
	EventOrderPreview  OrderEventType = "order_previewed"
)

// OrderEventMessage is published to the order events exchange
type OrderEventMessage struct {
	Event     OrderEventType `json:"event"`
	SessionID string         `json:"session_id"`
	StoreID   string         `json:"store_id,omitempty"`
	ItemCode  string         `json:"item_code,omitempty"`
	Quantity  int            `json:"quantity,omitempty"`
	ItemCount int            `json:"item_count"`
	Total     string         `json:"total,omitempty"`
	Source    Source         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewOrderEvent creates an OrderEventMessage stamped with the current time
func NewOrderEvent(event OrderEventType, sessionID string, source Source) *OrderEventMessage {
	return &OrderEventMessage{
		Event:     event,
		SessionID: sessionID,
		Source:    source,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey generates the routing key for an order event
func (m *OrderEventMessage) RoutingKey() string {
	return fmt.Sprintf("order.%s", m.Event)
}
