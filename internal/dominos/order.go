package dominos

// Order is the document the ordering API prices. Field names follow the
// API's wire format.
type Order struct {
	StoreID       string                   `json:"StoreID"`
	ServiceMethod string                   `json:"ServiceMethod"`
	LanguageCode  string                   `json:"LanguageCode"`
	Products      []OrderProduct           `json:"Products"`
	Coupons       []OrderCoupon            `json:"Coupons"`
	FirstName     string                   `json:"FirstName,omitempty"`
	LastName      string                   `json:"LastName,omitempty"`
	Email         string                   `json:"Email,omitempty"`
	Phone         string                   `json:"Phone,omitempty"`
	Address       *OrderAddress            `json:"Address,omitempty"`
	Payments      []map[string]interface{} `json:"Payments"`
}

type OrderProduct struct {
	Code    string                 `json:"Code"`
	Qty     int                    `json:"Qty"`
	ID      int                    `json:"ID"`
	IsNew   bool                   `json:"isNew"`
	Options map[string]interface{} `json:"Options"`
}

type OrderCoupon struct {
	Code  string `json:"Code"`
	Qty   int    `json:"Qty"`
	ID    int    `json:"ID"`
	IsNew bool   `json:"isNew"`
}

type OrderAddress struct {
	Street     string `json:"Street"`
	City       string `json:"City"`
	Region     string `json:"Region"`
	PostalCode string `json:"PostalCode"`
	Type       string `json:"Type"`
}

// Amounts are the priced totals keyed by the API's names (Menu, Tax,
// Customer, DeliveryFee, ...).
type Amounts map[string]float64

// NewOrder starts an empty delivery order for a store.
func NewOrder(storeID string) *Order {
	return &Order{
		StoreID:       storeID,
		ServiceMethod: "Delivery",
		LanguageCode:  "en",
		Products:      []OrderProduct{},
		Coupons:       []OrderCoupon{},
		Payments:      []map[string]interface{}{},
	}
}

// AddProduct appends a product line. Lines are never merged.
func (o *Order) AddProduct(code string, qty int, options map[string]interface{}) {
	if options == nil {
		options = map[string]interface{}{}
	}
	o.Products = append(o.Products, OrderProduct{
		Code:    code,
		Qty:     qty,
		ID:      len(o.Products) + 1,
		IsNew:   true,
		Options: options,
	})
}

func (o *Order) AddCoupon(code string) {
	o.Coupons = append(o.Coupons, OrderCoupon{
		Code:  code,
		Qty:   1,
		ID:    len(o.Coupons) + 1,
		IsNew: true,
	})
}

// SetCustomer fills the contact and delivery address fields.
func (o *Order) SetCustomer(firstName, lastName, email, phone string, addr OrderAddress) {
	o.FirstName = firstName
	o.LastName = lastName
	o.Email = email
	o.Phone = phone
	if addr.Type == "" {
		addr.Type = "House"
	}
	o.Address = &addr
}
