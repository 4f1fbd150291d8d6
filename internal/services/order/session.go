package order

import (
	"encoding/json"
	"fmt"
	"time"

	"mcpizza/internal/dominos"
	"mcpizza/internal/models"
)

// Session is the cart state of one MCP client. Every domain operation takes
// it explicitly; nothing is kept in package state.
type Session struct {
	ID        string               `json:"id"`
	Store     *models.StoreRef     `json:"store,omitempty"`
	Customer  *models.CustomerInfo `json:"customer,omitempty"`
	Order     *dominos.Order       `json:"order,omitempty"`
	Items     []models.LineItem    `json:"items"`
	Coupons   []string             `json:"coupons"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`

	// events raised by operations on this snapshot, not yet published
	pending []*models.OrderEventMessage
}

func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Items:     []models.LineItem{},
		Coupons:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Marshal encodes the session snapshot stored by the session stores.
func (s *Session) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session %s: %w", s.ID, err)
	}
	return data, nil
}

// UnmarshalSession decodes a stored snapshot.
func UnmarshalSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.Items == nil {
		s.Items = []models.LineItem{}
	}
	if s.Coupons == nil {
		s.Coupons = []string{}
	}
	return &s, nil
}

// ItemCount is the number of line items, not the sum of quantities.
func (s *Session) ItemCount() int {
	return len(s.Items)
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// hasRealStore reports whether the selected store came from the ordering API.
func (s *Session) hasRealStore() bool {
	return s.Store != nil && s.Store.Source == models.SourceRealAPI
}
