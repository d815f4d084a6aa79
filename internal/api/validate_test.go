package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = func() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestParseOrderRequest_Valid(t *testing.T) {
	body := []byte(`{
		"api_key": "secret",
		"session_id": 1,
		"partner_id": 7,
		"date_order": "2025-05-30 09:15:00",
		"note": "table 4",
		"to_invoice": true,
		"lines": [
			{"product_id": 10, "qty": 2, "price_unit": 3.5, "discount": 10},
			{"product_id": 11}
		],
		"payments": [{"payment_method_id": 1, "amount": 9.1}]
	}`)

	key, req, reqErr := parseOrderRequest(body, testNow)
	require.Nil(t, reqErr)

	assert.Equal(t, "secret", key)
	assert.Equal(t, int64(1), req.SessionID)
	require.NotNil(t, req.PartnerID)
	assert.Equal(t, int64(7), *req.PartnerID)
	assert.Equal(t, "table 4", req.Note)
	assert.True(t, req.ToInvoice)
	assert.False(t, req.Draft)
	assert.Equal(t, time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC), req.DateOrder)

	require.Len(t, req.Lines, 2)
	assert.Equal(t, int64(10), req.Lines[0].ProductID)
	assert.Equal(t, 2.0, req.Lines[0].Qty)
	require.NotNil(t, req.Lines[0].PriceUnit)
	assert.True(t, req.Lines[0].PriceUnit.Equal(dec("3.5")))
	assert.True(t, req.Lines[0].Discount.Equal(dec("10")))

	// Omitted qty defaults to one; omitted price keeps the list price.
	assert.Equal(t, 1.0, req.Lines[1].Qty)
	assert.Nil(t, req.Lines[1].PriceUnit)

	require.Len(t, req.Payments, 1)
	assert.True(t, req.Payments[0].Amount.Equal(dec("9.1")))
}

func TestParseOrderRequest_DraftState(t *testing.T) {
	body := []byte(`{"session_id": 1, "state": "draft",
		"lines": [{"product_id": 10}], "payments": [{"payment_method_id": 1, "amount": 5}]}`)

	_, req, reqErr := parseOrderRequest(body, testNow)
	require.Nil(t, reqErr)
	assert.True(t, req.Draft)
}

func TestParseOrderRequest_InvalidJSON(t *testing.T) {
	key, req, reqErr := parseOrderRequest([]byte(`{"session_id": `), testNow)
	require.NotNil(t, reqErr)

	assert.Empty(t, key)
	assert.Nil(t, req)
	assert.Equal(t, http.StatusBadRequest, reqErr.status)
	assert.Contains(t, reqErr.message, "Invalid JSON format: ")
}

func TestParseOrderRequest_MissingSession(t *testing.T) {
	body := []byte(`{"api_key": "secret", "lines": [{"product_id": 10}], "payments": [{"payment_method_id": 1}]}`)

	key, _, reqErr := parseOrderRequest(body, testNow)
	require.NotNil(t, reqErr)
	assert.Equal(t, "secret", key, "key survives validation failure for authentication")
	assert.Equal(t, "session_id is required", reqErr.message)
}

func TestParseOrderRequest_LinesValidation(t *testing.T) {
	const wantMsg = "lines array is required with at least one product"

	for name, body := range map[string]string{
		"missing":   `{"session_id": 1, "payments": [{"payment_method_id": 1}]}`,
		"null":      `{"session_id": 1, "lines": null, "payments": [{"payment_method_id": 1}]}`,
		"empty":     `{"session_id": 1, "lines": [], "payments": [{"payment_method_id": 1}]}`,
		"not array": `{"session_id": 1, "lines": {"product_id": 10}, "payments": [{"payment_method_id": 1}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, reqErr := parseOrderRequest([]byte(body), testNow)
			require.NotNil(t, reqErr)
			assert.Equal(t, http.StatusBadRequest, reqErr.status)
			assert.Equal(t, wantMsg, reqErr.message)
		})
	}
}

func TestParseOrderRequest_PaymentsValidation(t *testing.T) {
	const wantMsg = "payments array is required with at least one payment"

	for name, body := range map[string]string{
		"missing": `{"session_id": 1, "lines": [{"product_id": 10}]}`,
		"empty":   `{"session_id": 1, "lines": [{"product_id": 10}], "payments": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, reqErr := parseOrderRequest([]byte(body), testNow)
			require.NotNil(t, reqErr)
			assert.Equal(t, wantMsg, reqErr.message)
		})
	}
}

func TestParseOrderRequest_ValidationOrder(t *testing.T) {
	// session_id wins over lines, lines win over payments.
	_, _, reqErr := parseOrderRequest([]byte(`{}`), testNow)
	require.NotNil(t, reqErr)
	assert.Equal(t, "session_id is required", reqErr.message)

	_, _, reqErr = parseOrderRequest([]byte(`{"session_id": 1}`), testNow)
	require.NotNil(t, reqErr)
	assert.Equal(t, "lines array is required with at least one product", reqErr.message)
}

func TestParseDateOrder(t *testing.T) {
	now := testNow

	t.Run("space layout", func(t *testing.T) {
		got := parseDateOrder("2025-05-30 09:15:00", now)
		assert.Equal(t, time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC), got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got := parseDateOrder("2025-05-30T09:15:00Z", now)
		assert.Equal(t, time.Date(2025, 5, 30, 9, 15, 0, 0, time.UTC), got)
	})

	t.Run("empty falls back to now", func(t *testing.T) {
		assert.Equal(t, now(), parseDateOrder("", now))
	})

	t.Run("garbage falls back to now", func(t *testing.T) {
		assert.Equal(t, now(), parseDateOrder("yesterday", now))
	})
}
