package dominos

import (
	"errors"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrInvalidMenu = errors.New("menu document is not valid JSON")

// Store is the subset of the store profile the server uses.
type Store struct {
	ID                     string  `json:"StoreID"`
	Phone                  string  `json:"Phone"`
	AddressDescription     string  `json:"AddressDescription"`
	IsDeliveryStore        bool    `json:"IsDeliveryStore"`
	IsOnlineNow            bool    `json:"IsOnlineNow"`
	MinDeliveryOrderAmount float64 `json:"MinimumDeliveryOrderAmount"`
	WaitMinutes            struct {
		Delivery WaitRange `json:"Delivery"`
		Carryout WaitRange `json:"Carryout"`
	} `json:"ServiceEstimatedWaitMinutes"`
}

// WaitRange is an estimated wait in minutes.
type WaitRange struct {
	Min int `json:"Min"`
	Max int `json:"Max"`
}

// Product is one menu entry flattened for display.
type Product struct {
	Code        string
	Name        string
	Description string
	Category    string
	Price       string
}

// Menu wraps a raw store menu document. Lookups walk the document with gjson
// instead of decoding the whole thing.
type Menu struct {
	raw []byte
}

// NewMenu validates raw and wraps it.
func NewMenu(raw []byte) (*Menu, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidMenu
	}
	return &Menu{raw: raw}, nil
}

// Raw returns the document as fetched.
func (m *Menu) Raw() []byte {
	return m.raw
}

// Search returns products whose name or description contains query,
// ignoring case. Results are ordered by product code.
func (m *Menu) Search(query string) []Product {
	needle := strings.ToLower(strings.TrimSpace(query))
	var out []Product

	gjson.GetBytes(m.raw, "Products").ForEach(func(key, product gjson.Result) bool {
		name := product.Get("Name").String()
		description := product.Get("Description").String()
		if !strings.Contains(strings.ToLower(name), needle) &&
			!strings.Contains(strings.ToLower(description), needle) {
			return true
		}

		code := product.Get("Code").String()
		if code == "" {
			code = key.String()
		}
		out = append(out, Product{
			Code:        code,
			Name:        name,
			Description: description,
			Category:    product.Get("ProductType").String(),
			Price:       m.productPrice(product),
		})
		return true
	})

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Categories lists the food category names, falling back to the distinct
// product types when the menu has no categorization block.
func (m *Menu) Categories() []string {
	var categories []string
	for _, name := range gjson.GetBytes(m.raw, "Categorization.Food.Categories.#.Name").Array() {
		if name.String() != "" {
			categories = append(categories, name.String())
		}
	}
	if len(categories) > 0 {
		return categories
	}

	seen := map[string]bool{}
	gjson.GetBytes(m.raw, "Products.@values.#.ProductType").ForEach(func(_, value gjson.Result) bool {
		if t := value.String(); t != "" && !seen[t] {
			seen[t] = true
			categories = append(categories, t)
		}
		return true
	})
	sort.Strings(categories)
	return categories
}

// HasItem reports whether code names a variant or a product on this menu.
func (m *Menu) HasItem(code string) bool {
	key := gjson.Escape(code)
	return gjson.GetBytes(m.raw, "Variants."+key).Exists() ||
		gjson.GetBytes(m.raw, "Products."+key).Exists()
}

// Price returns the listed price for a variant or product code.
func (m *Menu) Price(code string) (string, bool) {
	key := gjson.Escape(code)
	if price := gjson.GetBytes(m.raw, "Variants."+key+".Price"); price.Exists() {
		return price.String(), true
	}
	if product := gjson.GetBytes(m.raw, "Products."+key); product.Exists() {
		if price := m.productPrice(product); price != "" {
			return price, true
		}
	}
	return "", false
}

func (m *Menu) productPrice(product gjson.Result) string {
	for _, variant := range product.Get("Variants").Array() {
		price := gjson.GetBytes(m.raw, "Variants."+gjson.Escape(variant.String())+".Price")
		if price.Exists() {
			return price.String()
		}
	}
	return ""
}
