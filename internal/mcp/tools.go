package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"mcpizza/internal/models"
	"mcpizza/internal/services/order"
)

// toolHandler runs one tool against the caller's session and returns the
// payload to serialize.
type toolHandler func(ctx context.Context, sess *order.Session, args json.RawMessage) (any, error)

type tool struct {
	descriptor *sdk.Tool
	handler    toolHandler
	extended   bool
}

// invalidParamsError marks argument problems found before the domain runs.
type invalidParamsError struct {
	detail string
}

func (e *invalidParamsError) Error() string {
	return e.detail
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return &invalidParamsError{detail: fmt.Sprintf("cannot decode arguments: %v", err)}
	}
	return nil
}

func objectSchema(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func stringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

func ptr[T any](v T) *T {
	return &v
}

// catalog returns every tool in listing order.
func catalog(svc *order.Service) []tool {
	return []tool{
		{
			descriptor: &sdk.Tool{
				Name:        "find_dominos_store",
				Description: "Find the nearest Domino's store by address or zip code",
				InputSchema: objectSchema([]string{"address"}, map[string]*jsonschema.Schema{
					"address": stringProp("Full address or zip code (e.g. '1234 Main St, Carmichael, CA 95608' or '95608')"),
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var args struct {
					Address string `json:"address"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return svc.FindStore(ctx, sess, args.Address)
			},
		},
		{
			descriptor: &sdk.Tool{
				Name:        "search_menu",
				Description: "Search for menu items by name, description or category",
				InputSchema: objectSchema([]string{"query"}, map[string]*jsonschema.Schema{
					"query":    stringProp("Search term (e.g. 'pepperoni', 'wings', 'pasta')"),
					"store_id": stringProp("Store ID from find_dominos_store. Defaults to the selected store"),
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var args struct {
					Query   string `json:"query"`
					StoreID string `json:"store_id"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return svc.SearchMenu(ctx, sess, args.Query, args.StoreID)
			},
		},
		{
			descriptor: &sdk.Tool{
				Name:        "add_to_order",
				Description: "Add an item to the current order",
				InputSchema: objectSchema([]string{"item_code"}, map[string]*jsonschema.Schema{
					"item_code": stringProp("Product code from search_menu"),
					"quantity": {
						Type:        "integer",
						Description: "Number of items to add (default 1)",
						Minimum:     ptr(1.0),
						Maximum:     ptr(99.0),
					},
					"options": {
						Type:        "object",
						Description: "Item customization options",
					},
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var args struct {
					ItemCode string                 `json:"item_code"`
					Quantity *int                   `json:"quantity"`
					Options  map[string]interface{} `json:"options"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				quantity := 1
				if args.Quantity != nil {
					quantity = *args.Quantity
				}
				return svc.AddToOrder(ctx, sess, args.ItemCode, quantity, args.Options)
			},
		},
		{
			descriptor: &sdk.Tool{
				Name:        "view_order",
				Description: "View current order contents and estimated total",
				InputSchema: objectSchema(nil, nil),
			},
			handler: func(ctx context.Context, sess *order.Session, _ json.RawMessage) (any, error) {
				return svc.ViewOrder(ctx, sess)
			},
		},
		{
			extended: true,
			descriptor: &sdk.Tool{
				Name:        "get_store_menu",
				Description: "List the menu categories of the selected store",
				InputSchema: objectSchema(nil, map[string]*jsonschema.Schema{
					"store_id": stringProp("Store ID from find_dominos_store. Defaults to the selected store"),
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var args struct {
					StoreID string `json:"store_id"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return svc.GetStoreMenu(ctx, sess, args.StoreID)
			},
		},
		{
			extended: true,
			descriptor: &sdk.Tool{
				Name:        "set_customer_info",
				Description: "Set customer contact and delivery information",
				InputSchema: objectSchema([]string{"first_name", "last_name", "email", "phone", "address"}, map[string]*jsonschema.Schema{
					"first_name": stringProp("Customer first name"),
					"last_name":  stringProp("Customer last name"),
					"email":      stringProp("Customer email address"),
					"phone":      stringProp("Customer phone number"),
					"address": objectSchema([]string{"street", "city", "region", "zip"}, map[string]*jsonschema.Schema{
						"street": stringProp("Street address"),
						"city":   stringProp("City"),
						"region": stringProp("State or region code"),
						"zip":    stringProp("Postal code"),
					}),
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var customer models.CustomerInfo
				if err := decodeArgs(raw, &customer); err != nil {
					return nil, err
				}
				return svc.SetCustomerInfo(ctx, sess, customer)
			},
		},
		{
			extended: true,
			descriptor: &sdk.Tool{
				Name:        "calculate_order_total",
				Description: "Calculate the order total with tax and delivery fee",
				InputSchema: objectSchema(nil, nil),
			},
			handler: func(ctx context.Context, sess *order.Session, _ json.RawMessage) (any, error) {
				return svc.CalculateOrderTotal(ctx, sess)
			},
		},
		{
			extended: true,
			descriptor: &sdk.Tool{
				Name:        "apply_coupon",
				Description: "Apply a coupon code to the order",
				InputSchema: objectSchema([]string{"coupon_code"}, map[string]*jsonschema.Schema{
					"coupon_code": stringProp("Domino's coupon code"),
				}),
			},
			handler: func(ctx context.Context, sess *order.Session, raw json.RawMessage) (any, error) {
				var args struct {
					CouponCode string `json:"coupon_code"`
				}
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
				return svc.ApplyCoupon(ctx, sess, args.CouponCode)
			},
		},
		{
			extended: true,
			descriptor: &sdk.Tool{
				Name:        "prepare_order_preview",
				Description: "Prepare a preview of the order for review. Does not place the order",
				InputSchema: objectSchema(nil, nil),
			},
			handler: func(ctx context.Context, sess *order.Session, _ json.RawMessage) (any, error) {
				return svc.PrepareOrderPreview(ctx, sess)
			},
		},
	}
}
