package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/softguidetech/karage/internal/domain/pos"
)

// dateOrderLayout is the space-separated datetime form accepted (and echoed
// back) by the order endpoint.
const dateOrderLayout = "2006-01-02 15:04:05"

// requestError is a client-facing failure with its HTTP status.
type requestError struct {
	status  int
	message string
}

// orderPayload mirrors the raw JSON body of an order submission. Lines and
// payments stay raw so "missing", "not an array", and "empty" all map to the
// same validation message instead of a generic decode error.
type orderPayload struct {
	APIKey    string          `json:"api_key"`
	SessionID int64           `json:"session_id"`
	PartnerID *int64          `json:"partner_id"`
	Lines     json.RawMessage `json:"lines"`
	Payments  json.RawMessage `json:"payments"`
	DateOrder string          `json:"date_order"`
	Note      string          `json:"note"`
	ToInvoice bool            `json:"to_invoice"`
	State     string          `json:"state"`
}

type linePayload struct {
	ProductID int64    `json:"product_id"`
	Qty       *float64 `json:"qty"`
	PriceUnit *float64 `json:"price_unit"`
	Discount  *float64 `json:"discount"`
}

type paymentPayload struct {
	PaymentMethodID int64   `json:"payment_method_id"`
	Amount          float64 `json:"amount"`
}

// parseOrderRequest validates the body and normalizes it into a domain
// request. Checks run in a fixed order and the first failure wins: malformed
// JSON, then session_id, then lines, then payments. Defaults are applied only
// after validation passes.
func parseOrderRequest(body []byte, now func() time.Time) (string, *pos.OrderRequest, *requestError) {
	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil, &requestError{
			status:  http.StatusBadRequest,
			message: "Invalid JSON format: " + err.Error(),
		}
	}

	if payload.SessionID == 0 {
		return payload.APIKey, nil, &requestError{
			status:  http.StatusBadRequest,
			message: "session_id is required",
		}
	}

	lines, ok := decodeArray[linePayload](payload.Lines)
	if !ok || len(lines) == 0 {
		return payload.APIKey, nil, &requestError{
			status:  http.StatusBadRequest,
			message: "lines array is required with at least one product",
		}
	}

	payments, ok := decodeArray[paymentPayload](payload.Payments)
	if !ok || len(payments) == 0 {
		return payload.APIKey, nil, &requestError{
			status:  http.StatusBadRequest,
			message: "payments array is required with at least one payment",
		}
	}

	req := &pos.OrderRequest{
		SessionID: payload.SessionID,
		PartnerID: payload.PartnerID,
		DateOrder: parseDateOrder(payload.DateOrder, now),
		Note:      payload.Note,
		ToInvoice: payload.ToInvoice,
		Draft:     payload.State == pos.StateDraft,
		Lines:     make([]pos.LineRequest, len(lines)),
		Payments:  make([]pos.PaymentRequest, len(payments)),
	}

	for i, l := range lines {
		lr := pos.LineRequest{
			ProductID: l.ProductID,
			Qty:       1.0,
		}
		if l.Qty != nil {
			lr.Qty = *l.Qty
		}
		if l.PriceUnit != nil {
			pu := decimal.NewFromFloat(*l.PriceUnit)
			lr.PriceUnit = &pu
		}
		if l.Discount != nil {
			lr.Discount = decimal.NewFromFloat(*l.Discount)
		}
		req.Lines[i] = lr
	}

	for i, p := range payments {
		req.Payments[i] = pos.PaymentRequest{
			PaymentMethodID: p.PaymentMethodID,
			Amount:          decimal.NewFromFloat(p.Amount),
		}
	}

	return payload.APIKey, req, nil
}

// decodeArray reports false when raw is absent, null, or not an array of T.
func decodeArray[T any](raw json.RawMessage) ([]T, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, false
	}
	return out, true
}

func parseDateOrder(s string, now func() time.Time) time.Time {
	if s == "" {
		return now()
	}
	if t, err := time.Parse(dateOrderLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return now()
}
