package dominos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderWireFormat(t *testing.T) {
	order := NewOrder("4521")
	order.AddProduct("14SCREEN", 2, nil)
	order.AddProduct("14SCREEN", 1, map[string]interface{}{"X": map[string]interface{}{"1/1": "1.5"}})
	order.AddCoupon("9193")

	raw, err := json.Marshal(order)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "Delivery", doc["ServiceMethod"])
	assert.Equal(t, []interface{}{}, doc["Payments"])
	assert.NotContains(t, doc, "Address")

	products := doc["Products"].([]interface{})
	require.Len(t, products, 2)
	first := products[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{}, first["Options"])
	assert.Equal(t, float64(1), first["ID"])
	second := products[1].(map[string]interface{})
	assert.Equal(t, float64(2), second["ID"])
	assert.Equal(t, map[string]interface{}{"X": map[string]interface{}{"1/1": "1.5"}}, second["Options"])
}

func TestOrderSetCustomerDefaultsAddressType(t *testing.T) {
	order := NewOrder("4521")
	order.SetCustomer("Jane", "Doe", "jane@example.com", "916-555-0100", OrderAddress{
		Street: "1234 Main St",
		City:   "Carmichael",
	})

	require.NotNil(t, order.Address)
	assert.Equal(t, "House", order.Address.Type)
	assert.Equal(t, "Jane", order.FirstName)
}
