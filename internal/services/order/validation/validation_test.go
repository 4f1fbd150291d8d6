package validation

import (
	"errors"
	"strings"
	"testing"

	"mcpizza/internal/models"
)

func validCustomer() models.CustomerInfo {
	return models.CustomerInfo{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@example.com",
		Phone:     "(916) 555-0100",
		Address: models.CustomerAddress{
			Street: "1234 Main St",
			City:   "Carmichael",
			Region: "CA",
			Zip:    "95608",
		},
	}
}

func TestValidateLineItem(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		quantity int
		field    string
	}{
		{name: "valid item", code: "M_PEPPERONI", quantity: 2},
		{name: "max quantity", code: "HOT_WINGS", quantity: 99},
		{name: "missing code", code: "  ", quantity: 1, field: "item_code"},
		{name: "code too long", code: strings.Repeat("X", 51), quantity: 1, field: "item_code"},
		{name: "zero quantity", code: "S_PIZZA", quantity: 0, field: "quantity"},
		{name: "quantity too large", code: "S_PIZZA", quantity: 100, field: "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLineItem(tt.code, tt.quantity)
			checkField(t, err, tt.field)
		})
	}
}

func TestValidateCustomer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CustomerInfo)
		field  string
	}{
		{name: "valid customer", mutate: func(*models.CustomerInfo) {}},
		{name: "missing first name", mutate: func(c *models.CustomerInfo) { c.FirstName = "" }, field: "first_name"},
		{name: "missing zip", mutate: func(c *models.CustomerInfo) { c.Address.Zip = "" }, field: "address.zip"},
		{name: "bad email", mutate: func(c *models.CustomerInfo) { c.Email = "john.example.com" }, field: "email"},
		{name: "short phone", mutate: func(c *models.CustomerInfo) { c.Phone = "555-0100" }, field: "phone"},
		{name: "letters in phone", mutate: func(c *models.CustomerInfo) { c.Phone = "916-CALL-NOW1" }, field: "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customer := validCustomer()
			tt.mutate(&customer)
			checkField(t, ValidateCustomer(customer), tt.field)
		})
	}
}

func TestValidateQueryAndAddress(t *testing.T) {
	checkField(t, ValidateQuery("pizza"), "")
	checkField(t, ValidateQuery(""), "query")
	checkField(t, ValidateQuery(strings.Repeat("a", 101)), "query")
	checkField(t, ValidateAddress(" 95608 "), "")
	checkField(t, ValidateAddress("   "), "address")
	checkField(t, ValidateCouponCode("9193"), "")
	checkField(t, ValidateCouponCode(""), "coupon_code")
}

func checkField(t *testing.T, err error, field string) {
	t.Helper()
	if field == "" {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return
	}

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for %s, got %v", field, err)
	}
	if vErr.Field != field {
		t.Errorf("error field = %q, want %q", vErr.Field, field)
	}
}
