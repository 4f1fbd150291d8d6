package validation

import (
	"fmt"
	"strings"
	"unicode"

	"mcpizza/internal/models"
)

const (
	MaxQuantity       = 99
	maxItemCodeLength = 50
	maxQueryLength    = 100
	maxAddressLength  = 200
	maxCouponLength   = 20
	maxNameLength     = 100
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateAddress(address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return ValidationError{
			Field:   "address",
			Message: "address is required",
		}
	}

	if len(address) > maxAddressLength {
		return ValidationError{
			Field:   "address",
			Message: fmt.Sprintf("address must be at most %d characters", maxAddressLength),
		}
	}
	return nil
}

func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return ValidationError{
			Field:   "query",
			Message: "query is required",
		}
	}

	if len(query) > maxQueryLength {
		return ValidationError{
			Field:   "query",
			Message: fmt.Sprintf("query must be at most %d characters", maxQueryLength),
		}
	}
	return nil
}

// ValidateLineItem checks an add_to_order request. It does not check that
// the code exists on any menu.
func ValidateLineItem(code string, quantity int) error {
	if strings.TrimSpace(code) == "" {
		return ValidationError{
			Field:   "item_code",
			Message: "item code is required",
		}
	}

	if len(code) > maxItemCodeLength {
		return ValidationError{
			Field:   "item_code",
			Message: fmt.Sprintf("item code must be at most %d characters", maxItemCodeLength),
		}
	}

	if quantity < 1 {
		return ValidationError{
			Field:   "quantity",
			Message: "quantity must be at least 1",
		}
	}

	if quantity > MaxQuantity {
		return ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity must be less than or equal to %d", MaxQuantity),
		}
	}
	return nil
}

func ValidateCouponCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return ValidationError{
			Field:   "coupon_code",
			Message: "coupon code is required",
		}
	}

	if len(code) > maxCouponLength {
		return ValidationError{
			Field:   "coupon_code",
			Message: fmt.Sprintf("coupon code must be at most %d characters", maxCouponLength),
		}
	}
	return nil
}

// ValidateCustomer requires every contact and address field.
func ValidateCustomer(c models.CustomerInfo) error {
	required := []struct {
		field string
		value string
	}{
		{"first_name", c.FirstName},
		{"last_name", c.LastName},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address.street", c.Address.Street},
		{"address.city", c.Address.City},
		{"address.region", c.Address.Region},
		{"address.zip", c.Address.Zip},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return ValidationError{
				Field:   r.field,
				Message: fmt.Sprintf("%s is required", r.field),
			}
		}
	}

	if len(c.FirstName) > maxNameLength || len(c.LastName) > maxNameLength {
		return ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("names must be at most %d characters", maxNameLength),
		}
	}

	if err := validateEmail(c.Email); err != nil {
		return err
	}

	return validatePhone(c.Phone)
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return ValidationError{
			Field:   "email",
			Message: "email address is invalid",
		}
	}
	return nil
}

func validatePhone(phone string) error {
	digits := 0
	for _, r := range phone {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(" -().+", r):
		default:
			return ValidationError{
				Field:   "phone",
				Message: "phone may only contain digits, spaces and -().+",
			}
		}
	}

	if digits < 10 || digits > 15 {
		return ValidationError{
			Field:   "phone",
			Message: "phone must have between 10 and 15 digits",
		}
	}
	return nil
}
