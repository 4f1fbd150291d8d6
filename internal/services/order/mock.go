package order

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"mcpizza/internal/models"
)

type catalogItem struct {
	category    string
	code        string
	name        string
	description string
	price       decimal.Decimal
}

func (c catalogItem) menuItem() models.MenuItem {
	return models.MenuItem{
		Category:    c.category,
		Code:        c.code,
		Name:        c.name,
		Description: c.description,
		Price:       formatMoney(c.price),
	}
}

// mockCatalog is the demo menu served when the ordering API is off or down.
var mockCatalog = []catalogItem{
	{"Pizza", "S_PIZZA", "Medium Hand Tossed Pizza", "Medium pizza with classic hand tossed crust", decimal.RequireFromString("15.99")},
	{"Pizza", "L_DELUXE", "Large Deluxe Pizza", "Pepperoni, Italian sausage, green peppers, mushrooms, onions", decimal.RequireFromString("21.99")},
	{"Pizza", "M_PEPPERONI", "Medium Pepperoni Pizza", "Classic pepperoni pizza", decimal.RequireFromString("17.99")},
	{"Wings", "HOT_WINGS", "Hot Buffalo Wings", "Spicy buffalo wings with celery", decimal.RequireFromString("9.99")},
	{"Pasta", "PASTA_ALFREDO", "Chicken Alfredo Pasta", "Penne in creamy alfredo sauce with grilled chicken", decimal.RequireFromString("10.99")},
}

var mockStores = map[string]models.StoreRef{
	"95608": {
		StoreID:                "4521",
		Phone:                  "(916) 555-0199",
		Address:                "1234 Main St Carmichael, CA",
		IsDeliveryStore:        true,
		MinDeliveryOrderAmount: 10,
		DeliveryMinutes:        "20-30",
		PickupMinutes:          "10-20",
	},
	"10001": {
		StoreID:                "3681",
		Phone:                  "(212) 555-0123",
		Address:                "123 Broadway New York, NY",
		IsDeliveryStore:        true,
		MinDeliveryOrderAmount: 10,
		DeliveryMinutes:        "25-35",
		PickupMinutes:          "15-25",
	},
	"90210": {
		StoreID:                "2105",
		Phone:                  "(310) 555-0156",
		Address:                "456 Rodeo Dr Beverly Hills, CA",
		IsDeliveryStore:        true,
		MinDeliveryOrderAmount: 15,
		DeliveryMinutes:        "30-40",
		PickupMinutes:          "15-25",
	},
}

// mockStore looks address up by exact zip. Anything else gets the demo store
// with the input echoed into its address.
func mockStore(address string, source models.Source) models.StoreRef {
	address = strings.TrimSpace(address)
	store, ok := mockStores[address]
	if !ok {
		store = models.StoreRef{
			StoreID:                "9999",
			Phone:                  "(555) 555-0100",
			Address:                fmt.Sprintf("123 Demo St %s", address),
			IsDeliveryStore:        true,
			MinDeliveryOrderAmount: 10,
			DeliveryMinutes:        "25-35",
			PickupMinutes:          "15-25",
		}
	}
	store.Source = source
	return store
}

// searchCatalog matches query against name, description or category.
func searchCatalog(query string) []models.MenuItem {
	needle := strings.ToLower(strings.TrimSpace(query))
	items := []models.MenuItem{}
	for _, c := range mockCatalog {
		if strings.Contains(strings.ToLower(c.name), needle) ||
			strings.Contains(strings.ToLower(c.description), needle) ||
			strings.Contains(strings.ToLower(c.category), needle) {
			items = append(items, c.menuItem())
		}
	}
	return items
}

func catalogCategories() []string {
	seen := map[string]bool{}
	var categories []string
	for _, c := range mockCatalog {
		if !seen[c.category] {
			seen[c.category] = true
			categories = append(categories, c.category)
		}
	}
	return categories
}

func catalogPrice(code string) (decimal.Decimal, bool) {
	for _, c := range mockCatalog {
		if c.code == code {
			return c.price, true
		}
	}
	return decimal.Zero, false
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
