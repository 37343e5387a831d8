package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productInput struct {
	Name     string          `json:"name" validate:"required,max=200"`
	Price    decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity int             `json:"quantity" validate:"gte=0"`
}

func TestValidate_Success(t *testing.T) {
	err := Validate(productInput{Name: "Desk", Price: decimal.RequireFromString("149.90"), Quantity: 3})
	assert.NoError(t, err)
}

func TestValidate_UsesJSONFieldNames(t *testing.T) {
	err := Validate(productInput{Price: decimal.Zero})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["name"])
}

func TestValidate_NegativeDecimalPrice(t *testing.T) {
	err := Validate(productInput{Name: "Desk", Price: decimal.RequireFromString("-0.01")})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be greater than or equal to 0", valErr.Fields()["price"])
	assert.Contains(t, err.Error(), "field 'price'")
}

func TestDecodeAndValidate(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Lamp","price":"12.50","quantity":1}`))
	var in productInput
	require.NoError(t, DecodeAndValidate(req, &in))
	assert.True(t, in.Price.Equal(decimal.RequireFromString("12.5")))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	err := DecodeAndValidate(req, &in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
