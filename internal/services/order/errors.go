package order

import "errors"

// Domain precondition errors. They are reported to the caller as in-band
// tool errors rather than protocol errors.
var (
	ErrStoreNotFound    = errors.New("no store found near that address")
	ErrNoStore          = errors.New("no store selected, use find_dominos_store first")
	ErrNoOrder          = errors.New("no items in order, use add_to_order first")
	ErrCustomerRequired = errors.New("customer information required, use set_customer_info first")
	ErrItemNotOnMenu    = errors.New("item is not on the store menu")
)

// IsPrecondition reports whether err is one of the domain precondition errors.
func IsPrecondition(err error) bool {
	for _, target := range []error{ErrStoreNotFound, ErrNoStore, ErrNoOrder, ErrCustomerRequired, ErrItemNotOnMenu} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
